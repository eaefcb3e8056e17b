package naming

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// AllDatabases is the selector meaning every database. It can never be used
// as a real database name.
const AllDatabases = "all"

// ErrInvalidName is returned when a database name fails validation.
var ErrInvalidName = errors.New("invalid database name")

var validate = validator.New()

var dbNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

func init() {
	err := validate.RegisterValidation("dbname", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return name != AllDatabases && dbNameRegex.MatchString(name)
	})
	if err != nil {
		panic(fmt.Sprintf("registering dbname validation: %v", err))
	}
}

// ValidateDatabaseName rejects names that are unsafe to pass to the dump
// tool or to embed in an archive file name.
func ValidateDatabaseName(name string) error {
	if err := validate.Var(name, "required,dbname"); err != nil {
		return fmt.Errorf("%w %q: must be 1-64 letters, digits, '_' or '-' and not %q",
			ErrInvalidName, name, AllDatabases)
	}
	return nil
}
