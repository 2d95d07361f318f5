package clickhouse

import (
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
)

func TestBuildOptions(t *testing.T) {
	opts := buildOptions(ClientConfig{
		Host:         "ch",
		Port:         9000,
		Database:     "volscan",
		User:         "default",
		Password:     "pw",
		DialTimeout:  2 * time.Second,
		MaxExecTime:  30 * time.Second,
		AsyncInsert:  true,
		WaitForAsync: true,
	})
	assert.Equal(t, []string{"ch:9000"}, opts.Addr)
	assert.Equal(t, "volscan", opts.Auth.Database)
	assert.Equal(t, "default", opts.Auth.Username)
	assert.Equal(t, ch.Native, opts.Protocol)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)
	assert.Equal(t, 30, opts.Settings["max_execution_time"])
	assert.Equal(t, 1, opts.Settings["async_insert"])
	assert.Equal(t, 1, opts.Settings["wait_for_async_insert"])

	httpOpts := buildOptions(ClientConfig{Host: "ch", Port: 8123, UseHTTP: true})
	assert.Equal(t, ch.HTTP, httpOpts.Protocol)
	assert.Empty(t, httpOpts.Settings)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(WithPort(9000))
	assert.Error(t, err)
}

func TestSchemaTargetsDatabase(t *testing.T) {
	stmts := Schema("scan")
	assert.Len(t, stmts, 5)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS scan", stmts[0])
	for _, s := range stmts[1:] {
		assert.Contains(t, s, "CREATE TABLE IF NOT EXISTS scan.")
	}
}

func TestWithConfigKeepsDefaults(t *testing.T) {
	c := ClientConfig{MaxOpenConns: 10, ReadTimeout: 10 * time.Second}
	WithConfig(ClientConfig{Host: "ch", Port: 9000, Database: "volscan", AsyncInsert: true})(&c)
	assert.Equal(t, "ch", c.Host)
	assert.Equal(t, 10, c.MaxOpenConns)
	assert.Equal(t, 10*time.Second, c.ReadTimeout)
	assert.True(t, c.AsyncInsert)
}
