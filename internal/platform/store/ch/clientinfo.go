package ch

import (
	"os"
	"runtime"
	"strings"

	"heapcensus/internal/core/version"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// BuildClientInfo names this process in system.query_log: product tag, role,
// build version and commit, Go runtime, and host
func BuildClientInfo(role, tag string) clickhouse.ClientInfo {
	bi := version.Info()
	host, _ := os.Hostname()

	ci := clickhouse.ClientInfo{}
	for _, p := range [][2]string{
		{bi.Service, tag},
		{"role", role},
		{"version", bi.Version},
		{"commit", bi.Commit},
		{"go", runtime.Version()},
		{"host", host},
	} {
		v := strings.TrimSpace(p[1])
		if v == "" {
			v = "unknown"
		}
		ci.Products = append(ci.Products, struct{ Name, Version string }{p[0], v})
	}
	return ci
}
