// Issues a user JWT for local testing.
//
//	go run ./cmd/generate-jwt <user-id>
package main

import (
	"fmt"
	"os"

	"bridge-backend/internal/config"
	"bridge-backend/internal/handlers"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: generate-jwt <user-id>")
		os.Exit(1)
	}

	if err := config.LoadConfig(os.Getenv("CONFIG_PATH")); err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	token, err := handlers.GenerateJWTToken(os.Args[1])
	if err != nil {
		fmt.Printf("Failed to generate token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
