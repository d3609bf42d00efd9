// Command envhttpd serves a live BME280 / TMP117 sensor report over HTTP.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
