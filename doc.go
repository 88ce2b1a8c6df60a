// The [openslides] package is a client for OpenSlides 3 servers.
//
// # Sessions
//
// A [Session] logs into a server, checks that the server version meets the
// configured constraint, and mirrors every record the user may see into a
// [github.com/openslides/openslides.go/pkg/store.Store]. The mirror is kept current by the autoupdate WebSocket
// channel in [github.com/openslides/openslides.go/pkg/autoupdate], and is
// reloaded over REST after every reconnect.
//
// Configuration comes from the environment, see
// [github.com/openslides/openslides.go/pkg/config].
//
// # Repositories and view models
//
// Each collection is reached through a typed repository from
// [github.com/openslides/openslides.go/pkg/repository]. Writes go to the
// server and come back through the autoupdate channel. Reads never leave
// the process.
//
// The [github.com/openslides/openslides.go/pkg/viewmodels] package wraps
// records with their relations, resolved against the store on every access.
// Pass their views, such as viewmodels.MotionView, to
// [github.com/openslides/openslides.go/pkg/repository.Watch] to follow a
// collection and everything it refers to as it changes.
//
// # Errors
//
// Errors returned by the server are [*github.com/openslides/openslides.go/httpclient.Error] values. Use [Notice]
// to turn any error into a message fit for display.
package openslides
