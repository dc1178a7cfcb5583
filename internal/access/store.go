package access

import "errors"

// Local store keys shared with the web frontend.
const (
	KeyToken       = "secret_access_token"
	KeyTimestamp   = "secret_access_timestamp"
	KeyAdminBypass = "admin_secret_menu_access"
)

// ErrStoreUnavailable is returned by Store implementations whose backing
// medium cannot be reached.
var ErrStoreUnavailable = errors.New("local store unavailable")

// Store is the local key-value cache holding the active session between
// restarts. In the web frontend this is browser local storage; the kiosk
// uses a file. Implementations are expected to be cheap and may fail at
// any time; the controller treats every failure as "no session".
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}
