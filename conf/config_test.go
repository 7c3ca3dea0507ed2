package conf

import (
	"crypto/ed25519"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type configTestSuite struct {
	suite.Suite
}

func (suite *configTestSuite) SetupTest() {
	Path = ".."
}

func (suite *configTestSuite) TestLoadExampleConfig() {
	cfg, err := LoadConfig()
	suite.Require().NoError(err)

	suite.Equal("kylaris", cfg.Name)
	suite.Nil(cfg.JWT.Privkey)
	suite.Equal(24*time.Hour, cfg.JWT.Timeout)
	suite.Equal([]string{"kylaris"}, cfg.JWT.Audiences)

	suite.Equal(SQLite, cfg.Persistence.Driver)
	suite.Equal("..", cfg.Persistence.Host)

	suite.Equal(NATS, cfg.EventBus.Provider)
	suite.Equal("trading", cfg.EventBus.Topic)

	suite.Equal("https://api.binance.com", cfg.Binance.BaseURL)
	suite.Equal(5*time.Second, cfg.Binance.Timeout)
	suite.Equal(time.Minute, cfg.Binance.CacheTTL)

	suite.Equal("America/New_York", cfg.Review.Location.String())
	suite.Equal(48, cfg.Review.WindowSize)
	suite.Equal(50, cfg.Review.EMASlow)
}

func (suite *configTestSuite) TestJWTKeyFromEnv() {
	_, priv, err := ed25519.GenerateKey(nil)
	suite.Require().NoError(err)

	suite.T().Setenv("KYLARIS_JWT_PRIVKEY", base64.StdEncoding.EncodeToString(priv))

	cfg, err := LoadConfig()
	suite.Require().NoError(err)

	suite.Equal(priv, cfg.JWT.Privkey)
	suite.Equal([]string{"kylaris"}, cfg.JWT.Audiences)
}

func (suite *configTestSuite) TestDefaults() {
	dir := suite.T().TempDir()
	Path = dir

	err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("persistence:\n  driver: inmem\n"), 0o644)
	suite.Require().NoError(err)

	cfg, err := LoadConfig()
	suite.Require().NoError(err)

	suite.Equal("kylaris", cfg.Name)
	suite.Equal(InMem, cfg.Persistence.Driver)
	suite.Equal(dir, cfg.Persistence.Host)
	suite.Equal(NoTransport, cfg.EventBus.Provider)
	suite.Equal(DefaultBinance(), cfg.Binance)
	suite.Equal(14, cfg.Review.RSI)
	suite.Nil(cfg.JWT.Privkey)
}

func (suite *configTestSuite) TestEnvExpansion() {
	suite.T().Setenv("KYLARIS_TEST_HOST", "/var/lib/kylaris")

	r := NewEnvExpandedReader(strings.NewReader(
		"host: ${KYLARIS_TEST_HOST}\nname: ${KYLARIS_TEST_UNSET:-fallback}\n",
	))

	var raw map[string]string
	suite.Require().NoError(yaml.NewDecoder(r).Decode(&raw))
	suite.Equal("/var/lib/kylaris", raw["host"])
	suite.Equal("fallback", raw["name"])
}

func (suite *configTestSuite) TestInvalidSections() {
	var p Persistence
	err := yaml.Unmarshal([]byte("driver: postgres\n"), &p)
	suite.Error(err)

	var b Binance
	err = yaml.Unmarshal([]byte("timeout: soon\n"), &b)
	suite.Error(err)

	var r Review
	err = yaml.Unmarshal([]byte("timezone: Mars/Olympus\n"), &r)
	suite.Error(err)

	var jwt JWT
	err = yaml.Unmarshal([]byte("privkey: AAAA\naudiences: [kylaris]\n"), &jwt)
	suite.Error(err)

	jwt = JWT{}
	err = yaml.Unmarshal([]byte("privkey:\naudiences: [kylaris]\n"), &jwt)
	suite.NoError(err)
	suite.Nil(jwt.Privkey)
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(configTestSuite))
}
