package disk

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestSplitParent(t *testing.T) {
	cases := map[string][2]string{
		"/XLog/Mira/king.txt": {"/XLog/Mira", "king.txt"},
		"/XLog":               {"", "XLog"},
		"/XLog/Mira/":         {"/XLog", "Mira"},
		"plain":               {"/", "plain"},
	}
	for in, want := range cases {
		parent, name := splitParent(in)
		assert.Equal(t, want[0], parent, in)
		assert.Equal(t, want[1], name, in)
	}
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `O\'Brien`, escapeQuery("O'Brien"))
	assert.Equal(t, `a\\b`, escapeQuery(`a\b`))
}

func TestDriveErr(t *testing.T) {
	notFound := &googleapi.Error{Code: http.StatusNotFound}
	assert.ErrorIs(t, driveErr("x", notFound), ErrNotFound)

	other := driveErr("x", errors.New("boom"))
	assert.ErrorIs(t, other, ErrUnavailable)
}

func TestNewDrive_RequiresRefreshToken(t *testing.T) {
	_, err := NewDrive(context.Background(), DriveCredentials{ClientID: "id"})
	assert.Error(t, err)
}
