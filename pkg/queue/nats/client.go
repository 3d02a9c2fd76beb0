package nats

import (
	"flag"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

type Config struct {
	Url string `yaml:"url"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.Url, flagPrefix+"nats.url", nats.DefaultURL, `NATS server url.`)
}

type Client struct {
	conn *nats.Conn
	log  log.Logger
}

func NewClient(cfg Config, log log.Logger) (*Client, error) {
	conn, err := nats.Connect(cfg.Url,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				_ = level.Warn(log).Log("msg", "nats disconnected", "err", err)
			}
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "initialize nats connection")
	}

	return &Client{
		conn: conn,
		log:  log,
	}, nil
}

func (n *Client) Pub(subject string, data []byte) error {
	if err := n.conn.Publish(subject, data); err != nil {
		return errors.Wrap(err, "nats publish")
	}

	return nil
}

func (n *Client) Close() error {
	if err := n.conn.Drain(); err != nil {
		return errors.Wrap(err, "nats drain")
	}

	return nil
}
