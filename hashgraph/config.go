package hashgraph

import (
	"github.com/sirupsen/logrus"
)

// Config holds the tunable parameters of the consensus engine.
type Config struct {
	//CoinRoundFreq is the voting-round period at which fame elections fall
	//back to a coin flip. Every CoinRoundFreq'th round of an election is a
	//coin round.
	CoinRoundFreq int

	Logger *logrus.Entry
}

func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel
	return &Config{
		CoinRoundFreq: 10,
		Logger:        logrus.NewEntry(logger),
	}
}
