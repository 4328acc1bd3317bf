package records

type Store interface {
	SaveRecord(record *Record) error
	ListRecords(limit int) ([]Record, error)
	CountByOutcome() (map[Outcome]int, error)
}
