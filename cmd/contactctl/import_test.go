package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/bulk"
)

func TestMimeForPath(t *testing.T) {
	mt, err := mimeForPath("/tmp/Contacts.CSV")
	require.NoError(t, err)
	assert.Equal(t, bulk.MimeCSV, mt)

	mt, err = mimeForPath("book.xlsx")
	require.NoError(t, err)
	assert.Equal(t, bulk.MimeXLSX, mt)

	_, err = mimeForPath("book.xls")
	assert.Error(t, err)
}

func TestRootCmdWiresSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"migrate", "import", "export"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
