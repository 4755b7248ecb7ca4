package rawfit

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx"
)

var readoutMapping *ReadoutMapping

// ReadoutMapping translates daq channel ids to the signal ids used in the
// analysis, as configured for one run range in the metadata database.
type ReadoutMapping struct {
	ToSignalID   map[int]int
	ToDaqChannel map[int]int
}

type readoutEntry struct {
	DaqChannel int `db:"DaqChannel"`
	SignalID   int `db:"SignalID"`
}

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

// LoadDatabase reads the readout mapping for the given run and keeps it as
// the package mapping used when decoding events.
func LoadDatabase(db *sqlx.DB, runNumber int) error {
	mapping, err := GetReadoutFromDB(db, runNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting readout mapping from database: %w", err)
		logError(errMessage.Error())
		return errMessage
	}
	readoutMapping = mapping
	return nil
}

// GetReadout returns the mapping loaded by LoadDatabase, nil when running
// without database.
func GetReadout() *ReadoutMapping {
	return readoutMapping
}

func GetReadoutFromDB(db *sqlx.DB, runNumber int) (*ReadoutMapping, error) {
	query := fmt.Sprintf("SELECT DaqChannel, SignalID from ReadoutMapping WHERE MinRun <= %d and MaxRun >= %d",
		runNumber, runNumber)
	rows, err := db.Queryx(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mapping := &ReadoutMapping{
		ToSignalID:   make(map[int]int),
		ToDaqChannel: make(map[int]int),
	}
	for rows.Next() {
		var entry readoutEntry
		if err := rows.StructScan(&entry); err != nil {
			return nil, err
		}
		mapping.ToSignalID[entry.DaqChannel] = entry.SignalID
		mapping.ToDaqChannel[entry.SignalID] = entry.DaqChannel
	}
	logInfo(fmt.Sprintf("readout mapping loaded for run %d: %d channels", runNumber, len(mapping.ToSignalID)), "database")
	return mapping, rows.Err()
}

// SignalID maps a daq channel to its signal id, falling back to the channel
// id itself for unmapped channels.
func (m *ReadoutMapping) SignalID(daqChannel int) int {
	if id, ok := m.ToSignalID[daqChannel]; ok {
		return id
	}
	return daqChannel
}
