package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestModeFlag(t *testing.T) {
	t.Run("unknown mode is rejected before running", func(t *testing.T) {
		err := newApp().Run([]string{"enricher", "--mode", "sideways"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown mode")
	})

	t.Run("full prefix in any case", func(t *testing.T) {
		for _, in := range []string{"FULL", "full_refresh", " Full "} {
			a := newApp()
			var mode string
			a.Action = func(c *cli.Context) error {
				mode = c.String("mode")
				return nil
			}
			require.NoError(t, a.Run([]string{"enricher", "--mode", in}))
			assert.Equal(t, "full", mode, in)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		a := newApp()
		var mode string
		var workersSet bool
		a.Action = func(c *cli.Context) error {
			mode = c.String("mode")
			workersSet = c.IsSet("workers")
			return nil
		}
		require.NoError(t, a.Run([]string{"enricher"}))
		assert.Equal(t, "incremental", mode)
		assert.False(t, workersSet)
	})
}
