package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"commune/cmd/internal/passphrase"
	"commune/crypto"
)

var rpcEndpoint = defaultRPCEndpoint()
var rpcAuthToken = os.Getenv("COMMUNE_RPC_TOKEN")

func main() {
	args := os.Args[1:]
	var err error
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	switch command {
	case "generate-key":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a keystore path.")
			printUsage()
			return
		}
		generateKey(args[1])
	case "address":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a keystore path.")
			printUsage()
			return
		}
		showAddress(args[1])
	case "balance":
		if len(args) < 2 {
			fmt.Println("Error: Please provide an address.")
			printUsage()
			return
		}
		call("commune_getBalance", map[string]any{"address": args[1]})
	case "profile":
		if len(args) < 2 {
			fmt.Println("Error: Please provide an owner address.")
			printUsage()
			return
		}
		call("commune_getProfile", map[string]any{"owner": args[1]})
	case "create-profile":
		if len(args) < 3 {
			fmt.Println("Error: Please provide an owner address and a username.")
			printUsage()
			return
		}
		params := map[string]any{"owner": args[1], "username": args[2]}
		if len(args) > 3 {
			params["bio"] = strings.Join(args[3:], " ")
		}
		call("commune_createProfile", params)
	case "group":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a group address.")
			printUsage()
			return
		}
		call("commune_getGroup", map[string]any{"group": args[1]})
	case "send":
		if len(args) < 5 {
			fmt.Println("Error: usage is send <group> <sender> <message-id> <content...>")
			printUsage()
			return
		}
		id, err := strconv.ParseUint(args[3], 10, 64)
		if err != nil {
			fmt.Println("Error: Invalid message id.")
			return
		}
		call("commune_sendMessage", map[string]any{
			"group":     args[1],
			"sender":    args[2],
			"messageId": id,
			"content":   strings.Join(args[4:], " "),
		})
	case "derive":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a JSON derivation request.")
			printUsage()
			return
		}
		var params map[string]any
		if err := json.Unmarshal([]byte(strings.Join(args[1:], " ")), &params); err != nil {
			fmt.Printf("Error: invalid derivation JSON: %v\n", err)
			return
		}
		call("commune_deriveAddress", params)
	case "call":
		if len(args) < 3 {
			fmt.Println("Error: usage is call <method> <json-params>")
			printUsage()
			return
		}
		var params map[string]any
		if err := json.Unmarshal([]byte(strings.Join(args[2:], " ")), &params); err != nil {
			fmt.Printf("Error: invalid params JSON: %v\n", err)
			return
		}
		call(args[1], params)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func printUsage() {
	fmt.Println(`Usage: communectl [--rpc <url>] <command> [args]

Commands:
  generate-key <path>                       Create a new keystore
  address <path>                            Print the keystore's address
  balance <address>                         Query native balance
  profile <owner>                           Query a profile
  create-profile <owner> <username> [bio]   Register a profile
  group <address>                           Query a group
  send <group> <sender> <id> <content...>   Send a group message
  derive <json>                             Derive an entity address
  call <method> <json-params>               Invoke any RPC method

Mutating commands need COMMUNE_RPC_TOKEN in the environment.`)
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8545"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func generateKey(path string) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Printf("Error generating key: %v\n", err)
		return
	}
	source := passphrase.NewSource("COMMUNE_KEYSTORE_PASS")
	secret, err := source.Get()
	if err != nil {
		fmt.Printf("Error reading passphrase: %v\n", err)
		return
	}
	if err := crypto.SaveToKeystore(path, key, secret); err != nil {
		fmt.Printf("Error saving keystore: %v\n", err)
		return
	}
	fmt.Printf("New key saved to %s\nAddress: %s\n", path, key.PubKey().Address())
}

func showAddress(path string) {
	source := passphrase.NewSource("COMMUNE_KEYSTORE_PASS")
	secret, err := source.Get()
	if err != nil {
		fmt.Printf("Error reading passphrase: %v\n", err)
		return
	}
	key, err := crypto.LoadFromKeystore(path, secret)
	if err != nil {
		fmt.Printf("Error loading keystore: %v\n", err)
		return
	}
	fmt.Println(key.PubKey().Address())
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func call(method string, params map[string]any) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  []any{params},
		ID:      1,
	})
	if err != nil {
		fmt.Printf("Error encoding request: %v\n", err)
		return
	}

	httpReq, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewReader(payload))
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if rpcAuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+rpcAuthToken)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		fmt.Printf("Error calling %s: %v\n", rpcEndpoint, err)
		return
	}
	defer resp.Body.Close()

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		fmt.Printf("Error decoding response: %v\n", err)
		return
	}
	if decoded.Error != nil {
		fmt.Printf("RPC error %d: %s\n", decoded.Error.Code, decoded.Error.Message)
		os.Exit(1)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, decoded.Result, "", "  "); err != nil {
		fmt.Println(string(decoded.Result))
		return
	}
	fmt.Println(pretty.String())
}
