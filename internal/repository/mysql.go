package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const mysqlDuplicateEntry = 1062

func mysqlError(op string, err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// objectIDScanner reads a CHAR(24) column into an object id.
type objectIDScanner struct {
	id *primitive.ObjectID
}

func (s objectIDScanner) Scan(src any) error {
	var hex string
	switch v := src.(type) {
	case string:
		hex = v
	case []byte:
		hex = string(v)
	default:
		return fmt.Errorf("unsupported id type %T", src)
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return err
	}
	*s.id = id
	return nil
}
