package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	require.Equal(t, 15*time.Minute, viper.GetDuration("sweeper.payment_threshold"))
	require.Equal(t, time.Minute, viper.GetDuration("sweeper.payment_interval"))
	require.Equal(t, time.Hour, viper.GetDuration("sweeper.delivery_threshold"))
	require.Equal(t, 24*time.Hour, viper.GetDuration("sweeper.delivery_interval"))
	require.Equal(t, "sandbox", viper.GetString("payment.provider"))
}

func TestDefaultsYieldToConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("sweeper.payment_threshold", "30m")

	require.Equal(t, 30*time.Minute, viper.GetDuration("sweeper.payment_threshold"))
}
