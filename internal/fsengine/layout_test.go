package fsengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	t.Run("DataEntry", func(t *testing.T) {
		entry, ok := Parse("42")
		assert.True(t, ok)
		assert.Equal(t, KindData, entry.Kind)
		assert.Equal(t, uint64(42), entry.FID)
	})

	t.Run("MetaEntry", func(t *testing.T) {
		entry, ok := Parse("42.readme.txt")
		assert.True(t, ok)
		assert.Equal(t, KindMeta, entry.Kind)
		assert.Equal(t, uint64(42), entry.FID)
		assert.Equal(t, "readme.txt", entry.Name)
	})

	t.Run("RejectsZeroFID", func(t *testing.T) {
		_, ok := Parse("0")
		assert.False(t, ok)
	})

	t.Run("RejectsNonNumericPrefix", func(t *testing.T) {
		_, ok := Parse("tmp")
		assert.False(t, ok)

		_, ok = Parse("counter")
		assert.False(t, ok)
	})

	t.Run("RejectsEmpty", func(t *testing.T) {
		_, ok := Parse("")
		assert.False(t, ok)
	})
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("readme.txt"))
	assert.False(t, ValidName(""))
	assert.False(t, ValidName("."))
	assert.False(t, ValidName(".."))
	assert.False(t, ValidName("a/b"))
	assert.False(t, ValidName("a\x00b"))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	entry, ok := Parse(EncodeData(7))
	assert.True(t, ok)
	assert.Equal(t, KindData, entry.Kind)
	assert.Equal(t, uint64(7), entry.FID)

	entry, ok = Parse(EncodeMeta(7, "a.b.c"))
	assert.True(t, ok)
	assert.Equal(t, KindMeta, entry.Kind)
	assert.Equal(t, uint64(7), entry.FID)
	assert.Equal(t, "a.b.c", entry.Name)
}
