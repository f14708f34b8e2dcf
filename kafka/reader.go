package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"slices"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/kbukum/metatrack/logger"
)

var saslMechanisms = map[string]func(user, pass string) (sasl.Mechanism, error){
	"PLAIN": func(user, pass string) (sasl.Mechanism, error) {
		return plain.Mechanism{Username: user, Password: pass}, nil
	},
	"SCRAM-SHA-256": func(user, pass string) (sasl.Mechanism, error) {
		return scram.Mechanism(scram.SHA256, user, pass)
	},
	"SCRAM-SHA-512": func(user, pass string) (sasl.Mechanism, error) {
		return scram.Mechanism(scram.SHA512, user, pass)
	},
}

// SASLMechanisms lists the accepted values of sasl_mechanism.
func SASLMechanisms() []string {
	names := make([]string, 0, len(saslMechanisms))
	for name := range saslMechanisms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// readerConfig maps cfg onto a kafka-go reader. Reader errors are logged
// to log with the topic attached.
func readerConfig(cfg *Config, log *logger.Logger) (kafkago.ReaderConfig, error) {
	dialer, err := newDialer(cfg)
	if err != nil {
		return kafkago.ReaderConfig{}, err
	}
	rc := kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             cfg.Topic,
		GroupID:           cfg.GroupID,
		Dialer:            dialer,
		StartOffset:       startOffset(cfg.StartOffset),
		MinBytes:          1,
		MaxBytes:          cfg.MaxBytes,
		SessionTimeout:    ParseDuration(cfg.SessionTimeout),
		HeartbeatInterval: ParseDuration(cfg.HeartbeatInterval),
		RebalanceTimeout:  ParseDuration(cfg.RebalanceTimeout),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...any) {
			log.Error("reader: "+fmt.Sprintf(msg, args...), logger.Fields(logger.FieldTopic, cfg.Topic))
		}),
	}
	// kafka-go rejects a partition together with a group.
	if cfg.GroupID == "" {
		rc.Partition = cfg.Partition
	}
	return rc, nil
}

func newDialer(cfg *Config) (*kafkago.Dialer, error) {
	d := &kafkago.Dialer{Timeout: ParseDuration(cfg.DialTimeout), DualStack: true}
	if cfg.EnableTLS {
		tc, err := clientTLS(cfg)
		if err != nil {
			return nil, fmt.Errorf("kafka tls: %w", err)
		}
		d.TLS = tc
	}
	if cfg.EnableSASL {
		build, ok := saslMechanisms[cfg.SASLMechanism]
		if !ok {
			return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.SASLMechanism)
		}
		m, err := build(cfg.Username, cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("kafka sasl: %w", err)
		}
		d.SASLMechanism = m
	}
	return d, nil
}

func clientTLS(cfg *Config) (*tls.Config, error) {
	tc := &tls.Config{InsecureSkipVerify: cfg.TLSSkipVerify, MinVersion: tls.VersionTLS12}
	if cfg.TLSCAFile != "" {
		pem, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		tc.RootCAs = x509.NewCertPool()
		if !tc.RootCAs.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in %s", cfg.TLSCAFile)
		}
	}
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	return tc, nil
}

// startOffset maps start_offset onto kafka-go. It only applies to readers
// without a committed group offset.
func startOffset(name string) int64 {
	if name == "last" {
		return kafkago.LastOffset
	}
	return kafkago.FirstOffset
}
