package rpc

import (
	"encoding/json"
	"fmt"

	"commune/crypto"
)

// parseParams unmarshals the single positional params object into out.
func parseParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one params object, got %d", len(req.Params))
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

func parseAddress(field, value string) (crypto.Address, error) {
	if value == "" {
		return crypto.ZeroAddress, fmt.Errorf("%s is required", field)
	}
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return crypto.ZeroAddress, fmt.Errorf("%s: %v", field, err)
	}
	return addr, nil
}

// parseOptionalAddress treats an empty string as the unset sentinel.
func parseOptionalAddress(field, value string) (crypto.Address, error) {
	if value == "" {
		return crypto.ZeroAddress, nil
	}
	return parseAddress(field, value)
}

func addressOrEmpty(addr crypto.Address) string {
	if addr.IsZero() {
		return ""
	}
	return addr.String()
}
