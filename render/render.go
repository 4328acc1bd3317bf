package render

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tomasstrnad1997/minesweeper/mines"
)

const separator = "  "

// Write prints one row per line, every value followed by two spaces.
func Write(w io.Writer, snapshot mines.Snapshot) error {
	bw := bufio.NewWriter(w)
	for _, row := range snapshot {
		for _, value := range row {
			bw.WriteString(value)
			bw.WriteString(separator)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// WriteIndexed is Write with column numbers on top and row numbers on the left.
func WriteIndexed(w io.Writer, snapshot mines.Snapshot) error {
	bw := bufio.NewWriter(w)
	width := len(fmt.Sprint(max(snapshot.Rows()-1, 0)))
	bw.WriteString(strings.Repeat(" ", width+1))
	for col := range snapshot.Cols() {
		fmt.Fprintf(bw, "%-3d", col)
	}
	bw.WriteString("\n")
	for row, values := range snapshot {
		fmt.Fprintf(bw, "%*d ", width, row)
		for _, value := range values {
			fmt.Fprintf(bw, "%-3s", value)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

func String(snapshot mines.Snapshot) string {
	var sb strings.Builder
	Write(&sb, snapshot)
	return sb.String()
}

// WriteSolution stores the full layout of the board in a text file.
func WriteSolution(path string, board *mines.Board) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not write board to file: %w", err)
	}
	if err := Write(file, board.Solution()); err != nil {
		file.Close()
		return fmt.Errorf("could not write board to file: %w", err)
	}
	return file.Close()
}
