package autoupdate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openslides/openslides.go/internal/fakeserver"
	"github.com/openslides/openslides.go/pkg/codec"
	"github.com/openslides/openslides.go/pkg/connection"
	"github.com/openslides/openslides.go/pkg/connection/gorillaws"
	"github.com/openslides/openslides.go/pkg/connection/gws"
	"github.com/openslides/openslides.go/pkg/logger"
	"github.com/openslides/openslides.go/pkg/models"
	"github.com/openslides/openslides.go/pkg/store"
)

func TestChannel_FakeServer(t *testing.T) {
	impls := map[string]func(*connection.Config) connection.NewFunc{
		"gorillaws": gorillaws.NewFunc,
		"gws":       gws.NewFunc,
	}

	for name, newFunc := range impls {
		for _, c := range []codec.Codec{codec.JSON(), codec.CBOR()} {
			t.Run(name+"/"+c.Name(), func(t *testing.T) {
				s := fakeserver.New()
				defer s.Close()

				cookie, err := s.Login("admin")
				require.NoError(t, err)
				cfg := connection.NewConfig(s.WebSocketURL())
				cfg.Codec = c
				cfg.Logger = logger.Discard()
				cfg.Header.Set("Cookie", cookie.String())

				st := store.New()
				defer st.Close()
				sub := st.Subscribe(models.CollectionMotion)
				defer sub.Unsubscribe()

				ch := New(newFunc(cfg), st, c, FixedBackoff(20*time.Millisecond, 0), nil)
				connected := make(chan struct{}, 4)
				ch.OnStateChange(func(_, to State) {
					if to == StateConnected {
						connected <- struct{}{}
					}
				})
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				require.NoError(t, ch.Connect(ctx))
				defer ch.Close(ctx)
				require.NoError(t, s.WaitConnections(ctx, 1))

				s.Push(&models.Motion{ID: models.IntID(1), Title: "Budget"})
				waitEvent(t, sub)
				m, ok := store.GetAs[*models.Motion](st, models.CollectionMotion, models.IntID(1))
				require.True(t, ok)
				assert.Equal(t, "Budget", m.Title)

				<-connected
				s.DropConnections()
				select {
				case <-connected:
				case <-ctx.Done():
					t.Fatal("channel did not reconnect")
				}
				require.NoError(t, s.WaitConnections(ctx, 1))

				s.PushDelete(models.NewKey(models.CollectionMotion, models.IntID(1)))
				ev := waitEvent(t, sub)
				assert.Len(t, ev.Deleted, 1)
				_, ok = st.Get(models.CollectionMotion, models.IntID(1))
				assert.False(t, ok)
			})
		}
	}
}
