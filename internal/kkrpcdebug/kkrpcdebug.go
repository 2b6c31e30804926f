// Package kkrpcdebug provides a mechanism to configure compatibility and
// diagnostic parameters via the KKRPCGODEBUG environment variable.
//
// The value of KKRPCGODEBUG is a comma-separated list of key=value pairs.
// For example:
//
//	KKRPCGODEBUG=logframes=1,striptrace=1
package kkrpcdebug

import (
	"fmt"
	"os"
	"strings"
)

const compatibilityEnvKey = "KKRPCGODEBUG"

var compatibilityParams map[string]string

func init() {
	var err error
	compatibilityParams, err = parseCompatibility(os.Getenv(compatibilityEnvKey))
	if err != nil {
		panic(err)
	}
}

// Value returns the value of the compatibility parameter with the given key.
// It returns an empty string if the key is not set.
func Value(key string) string {
	return compatibilityParams[key]
}

func parseCompatibility(envValue string) (map[string]string, error) {
	if envValue == "" {
		return nil, nil
	}

	params := make(map[string]string)
	for _, part := range strings.Split(envValue, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("KKRPCGODEBUG: invalid format: %q", part)
		}
		params[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return params, nil
}
