package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLikePattern(t *testing.T) {
	// Метасимволы LIKE экранируются, чтобы поиск был по буквальной подстроке
	assert.Equal(t, `100\%`, escapeLikePattern("100%"))
	assert.Equal(t, `\_`, escapeLikePattern("_"))
	assert.Equal(t, `a\\b`, escapeLikePattern(`a\b`))
	assert.Equal(t, `\\\%\_`, escapeLikePattern(`\%_`))

	// Обычный текст не меняется
	assert.Equal(t, "welcome to posterr", escapeLikePattern("welcome to posterr"))
}
