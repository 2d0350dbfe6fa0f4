// Package gen allows generating of an example client key set and signed request object.
//
//	go run ./internal/testutil/gen
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	tu "github.com/zitadel/ciba/internal/testutil"
)

func main() {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "    ")

	keys := tu.NewKeySet()
	token, claims := keys.SignRequestObject("web_client", "http://localhost:9998", "example-jti", time.Now())

	fmt.Println("jwks:")
	if err := enc.Encode(keys.JWKS()); err != nil {
		panic(err)
	}
	fmt.Println("request object claims:")
	if err := enc.Encode(claims); err != nil {
		panic(err)
	}
	fmt.Printf("request object:\n%s\n", token)
}
