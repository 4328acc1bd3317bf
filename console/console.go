// Package console runs a game session over line-oriented text input and output.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/tomasstrnad1997/minesweeper/mines"
	"github.com/tomasstrnad1997/minesweeper/render"
)

var ErrInputClosed = errors.New("input closed before the game ended")

type Console struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func New(in io.Reader, out io.Writer) *Console {
	scanner := bufio.NewScanner(in)
	scanner.Split(bufio.ScanWords)
	return &Console{scanner: scanner, out: out}
}

func (c *Console) next() (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", ErrInputClosed
	}
	return c.scanner.Text(), nil
}

func (c *Console) ChooseDifficulty() (mines.Difficulty, error) {
	for {
		fmt.Fprint(c.out, "Choose difficulty (Easy = e, medium = m, Hard = h): ")
		text, err := c.next()
		if err != nil {
			return "", err
		}
		difficulty, err := mines.ParseDifficulty(text)
		if err == nil {
			return difficulty, nil
		}
		fmt.Fprintln(c.out, err)
	}
}

func (c *Console) readInt(prompt string) (int, error) {
	for {
		fmt.Fprint(c.out, prompt)
		text, err := c.next()
		if err != nil {
			return 0, err
		}
		value, err := strconv.Atoi(text)
		if err == nil {
			return value, nil
		}
		fmt.Fprintf(c.out, "%q is not a number\n", text)
	}
}

func (c *Console) ReadPosition() (mines.Position, error) {
	row, err := c.readInt("Row: ")
	if err != nil {
		return mines.Position{}, err
	}
	col, err := c.readInt("Column: ")
	if err != nil {
		return mines.Position{}, err
	}
	return mines.Position{Row: row, Col: col}, nil
}

// Play reads moves until the game is won or lost and returns the final state.
func (c *Console) Play(game *mines.Game) (mines.GameState, error) {
	if err := render.WriteIndexed(c.out, game.Snapshot()); err != nil {
		return game.State(), err
	}
	for !game.State().Terminal() {
		pos, err := c.ReadPosition()
		if err != nil {
			return game.State(), err
		}
		result, err := game.Move(pos)
		var boundsErr *mines.OutOfBoundsError
		if errors.As(err, &boundsErr) {
			fmt.Fprintln(c.out, boundsErr)
			continue
		}
		if err != nil {
			return game.State(), err
		}
		switch result.Result {
		case mines.GameLost:
			err = render.WriteIndexed(c.out, game.LoseSnapshot())
			fmt.Fprintln(c.out, "YOU LOSE!")
		case mines.GameWon:
			err = render.WriteIndexed(c.out, game.Board.Solution())
			fmt.Fprintln(c.out, "CONGRATULATIONS! YOU WIN!")
		default:
			err = render.WriteIndexed(c.out, game.Snapshot())
		}
		if err != nil {
			return game.State(), err
		}
	}
	return game.State(), nil
}
