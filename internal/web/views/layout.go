package views

import (
	"time"

	"github.com/JonMunkholm/matricula/internal/notify"
)

// Page carries what every page shares.
type Page struct {
	Title string
	// Path is the current request path, used to come back after dismissing
	// a notification.
	Path string
	// Username is the signed-in admin; empty for visitors.
	Username     string
	Notification *notify.Notification
	Remaining    time.Duration
}
