package avatar

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Uploader stores an avatar image under a stable identifier and returns a
// versioned public URL.
type Uploader interface {
	Upload(ctx context.Context, id string, contentType string, body io.Reader) (string, error)
}

// GravatarURL builds the default avatar for a fresh signup from the email
// hash. Construction never fails; the signup path still treats the avatar as
// optional and proceeds without one if the provider is swapped for something
// fallible.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?d=identicon", hex.EncodeToString(sum[:]))
}
