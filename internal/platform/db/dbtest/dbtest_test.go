package dbtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithSearchPath(t *testing.T) {
	assert.Equal(t,
		"postgres://u:p@localhost:5432/app?search_path=test_x&sslmode=disable",
		withSearchPath("postgres://u:p@localhost:5432/app?sslmode=disable", "test_x"))
	assert.Equal(t,
		"host=localhost dbname=app search_path=test_x",
		withSearchPath("host=localhost dbname=app", "test_x"))
}
