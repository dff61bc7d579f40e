package webfinger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcctParse(t *testing.T) {
	tc := []struct {
		in     string
		expect Acct
	}{
		{"acct:foo@bar.com", Acct{User: "foo", Host: "bar.com"}},
		{"@foo@bar.com", Acct{User: "foo", Host: "bar.com"}},
		{"foo@bar.com", Acct{User: "foo", Host: "bar.com"}},
		{"acct%3Afoo%40bar.com", Acct{User: "foo", Host: "bar.com"}},
		{"foo", Acct{User: "foo"}},
	}
	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			req := require.New(t)
			got, err := Parse(tt.in)
			req.NoError(err)
			req.Equal(tt.expect, *got)
		})
	}

	for _, in := range []string{"", "acct:@bar.com", "foo@", "foo@bar@baz"} {
		_, err := Parse(in)
		require.Error(t, err, in)
	}
}

func TestAcctString(t *testing.T) {
	acct := &Acct{User: "foo", Host: "bar.com"}
	require.Equal(t, "acct:foo@bar.com", acct.String())
	require.Equal(t, "https://bar.com/.well-known/webfinger?resource=acct%3Afoo%40bar.com", acct.Webfinger())
}
