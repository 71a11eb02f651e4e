package storage_test

import (
	"testing"

	"listing-manager/core/storage"

	"github.com/stretchr/testify/assert"
)

func TestNewClient(t *testing.T) {
	cases := []struct {
		name string
		cfg  storage.Config
	}{
		{
			name: "Plain Endpoint",
			cfg: storage.Config{
				Endpoint:  "localhost:9000",
				AccessKey: "testkey",
				SecretKey: "testsecret",
				Bucket:    "extractions",
				Region:    "us-east-1",
			},
		},
		{
			// The scheme must be stripped before handing the endpoint to minio.
			name: "HTTP Scheme Stripped",
			cfg: storage.Config{
				Endpoint:  "http://localhost:9000",
				AccessKey: "testkey",
				SecretKey: "testsecret",
			},
		},
		{
			name: "HTTPS Scheme Stripped",
			cfg: storage.Config{
				Endpoint:  "https://s3.amazonaws.com",
				AccessKey: "testkey",
				SecretKey: "testsecret",
				UseSSL:    true,
				Region:    "us-east-1",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Construction is lazy; no endpoint is contacted here.
			client, err := storage.NewClient(tc.cfg)
			assert.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}
