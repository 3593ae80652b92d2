package inspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingColumns(t *testing.T) {
	t.Run("nothing found", func(t *testing.T) {
		missing := MissingColumns(DIDColumns, nil)
		assert.Len(t, missing, 5)
		assert.Contains(t, missing, "did_identifier")
	})

	t.Run("everything found", func(t *testing.T) {
		found := make([]ColumnInfo, 0, len(DIDColumns))
		for _, name := range DIDColumns {
			found = append(found, ColumnInfo{Name: name, DataType: "text"})
		}
		assert.Empty(t, MissingColumns(DIDColumns, found))
	})

	t.Run("partial", func(t *testing.T) {
		found := []ColumnInfo{
			{Name: "did_identifier", DataType: "text"},
			{Name: "public_key", DataType: "text"},
		}
		missing := MissingColumns(DIDColumns, found)
		assert.Equal(t, []string{"did_created_at", "did_document", "did_updated_at"}, missing)
	})

	t.Run("extra found columns are ignored", func(t *testing.T) {
		found := []ColumnInfo{{Name: "unrelated", DataType: "text"}}
		missing := MissingColumns([]string{"a"}, found)
		assert.Equal(t, []string{"a"}, missing)
	})
}

func TestReportDIDReady(t *testing.T) {
	ready := &Report{MissingDIDColumns: []string{}}
	assert.True(t, ready.DIDReady())

	notReady := &Report{MissingDIDColumns: []string{"did_document"}}
	assert.False(t, notReady.DIDReady())
}
