package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"quotevault/internal/entities"
)

func TestOneLine(t *testing.T) {
	assert.Equal(t, "short", oneLine("short", 10))
	assert.Equal(t, "two words", oneLine("two\n\twords", 20))
	assert.Equal(t, "apho…", oneLine("aphorisms", 5))
	assert.Equal(t, "こんに…", oneLine("こんにちは", 4))
}

func TestSessionNote(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	assert.Empty(t, sessionNote(&entities.AuthSession{ExpiresAt: &future}))
	assert.Empty(t, sessionNote(&entities.AuthSession{}))
	assert.Contains(t, sessionNote(&entities.AuthSession{ExpiresAt: &past}), "expired")
}

func TestRenderQuoteTable(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	out := renderQuoteTable([]entities.Quote{
		{Text: "The obstacle is the way.", Author: "Marcus Aurelius", IsFavorite: true, Timestamp: ts},
		{Text: "Simplicity is the ultimate sophistication.", Timestamp: ts.Add(-time.Hour)},
	})

	assert.Contains(t, out, "The obstacle is the way.")
	assert.Contains(t, out, "Marcus Aurelius")
	assert.Contains(t, out, "★")
	assert.Contains(t, out, "2024-03-01 09:30")
	assert.Contains(t, out, "QUOTE")
}
