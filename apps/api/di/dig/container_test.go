package dig_container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/aryaedu/tutor/apps/api/echo"
	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/admin"
)

func TestNew(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("DEV_DBNAME", ":memory:")

	c := New()
	err := c.Invoke(func(conf *core.Config, adminSvc *admin.Service, logger core.Logger, server *echoapi.Server) {
		assert.NotNil(t, server)
		require.NoError(t, SeedDefaultAdmin(conf, adminSvc, logger))

		adm, err := adminSvc.GetActiveByUsername(context.Background(), conf.DefaultAdmin.Username)
		require.NoError(t, err)
		assert.Equal(t, conf.DefaultAdmin.Email, adm.Email)

		// seeding twice is a no-op
		require.NoError(t, SeedDefaultAdmin(conf, adminSvc, logger))
	})
	require.NoError(t, err)
}
