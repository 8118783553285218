package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setMinimalEnv sets the variables Load requires; sqlite3 needs no password.
func setMinimalEnv(t *testing.T, brokerURL string) {
	t.Helper()
	t.Setenv("MQTT_BROKER_URL", brokerURL)
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_NAME", "/tmp/vesselsync.db")
}

func TestLoad_BrokerURLRequired(t *testing.T) {
	t.Setenv("MQTT_BROKER_URL", "")
	t.Setenv("DB_DRIVER", "sqlite3")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	setMinimalEnv(t, "tcp://broker:1883")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Broker.DefaultQoS)
	assert.False(t, cfg.Broker.TLS)
	assert.Equal(t, 10000, cfg.Sync.QueueMax)
	assert.Equal(t, 10, cfg.Broker.ConnectTimeout)
}

func TestLoad_TLSDerivedFromScheme(t *testing.T) {
	setMinimalEnv(t, "mqtts://broker:8883")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Broker.TLS)
}

func TestLoad_TLSExplicitOverridesScheme(t *testing.T) {
	setMinimalEnv(t, "mqtts://broker:8883")
	t.Setenv("MQTT_TLS", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Broker.TLS)
}

func TestLoad_TLSExplicitOnPlainScheme(t *testing.T) {
	setMinimalEnv(t, "tcp://broker:1883")
	t.Setenv("MQTT_TLS", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Broker.TLS)
}

func TestLoad_DefaultQoS(t *testing.T) {
	setMinimalEnv(t, "tcp://broker:1883")
	t.Setenv("MQTT_DEFAULT_QOS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Broker.DefaultQoS)
}

func TestLoad_DefaultQoSOutOfRange(t *testing.T) {
	setMinimalEnv(t, "tcp://broker:1883")
	t.Setenv("MQTT_DEFAULT_QOS", "5")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_PasswordRequiredForServerDatabases(t *testing.T) {
	t.Setenv("MQTT_BROKER_URL", "tcp://broker:1883")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_PASSWORD", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	mysql := DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Database: "vs"}
	assert.Equal(t, "u:p@tcp(db:3306)/vs?parseTime=true", mysql.GetDSN())

	postgres := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Database: "vs"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=vs sslmode=disable", postgres.GetDSN())

	sqlite := DatabaseConfig{Driver: "sqlite3", Database: "/tmp/vs.db"}
	assert.Equal(t, "/tmp/vs.db", sqlite.GetDSN())
}
