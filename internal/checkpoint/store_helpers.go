package checkpoint

import (
	"database/sql"
	"errors"
	"time"
)

const recordColumns = "page, status, error_kind, error_message, attempts, claimed_at, updated_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		page         int
		statusStr    string
		errorKind    sql.NullString
		errorMessage sql.NullString
		attempts     int
		claimedRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&page,
		&statusStr,
		&errorKind,
		&errorMessage,
		&attempts,
		&claimedRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		Page:         page,
		Status:       Status(statusStr),
		ErrorKind:    errorKind.String,
		ErrorMessage: errorMessage.String,
		Attempts:     attempts,
	}
	if claimedRaw.Valid {
		if claimed, err := parseTimeString(claimedRaw.String); err == nil {
			record.ClaimedAt = &claimed
		}
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
