package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

func main() {
	// 32 bytes (256 bits) per secret
	secrets := make([]string, 2)
	for i := range secrets {
		bytes := make([]byte, 32)
		if _, err := rand.Read(bytes); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		secrets[i] = hex.EncodeToString(bytes)
	}

	fmt.Println("=== New Secure Secrets Generated ===")
	fmt.Printf("API_SECRET=%s\n", secrets[0])
	fmt.Printf("TOKEN_SECRET=%s\n", secrets[1])
	fmt.Println("=====================================")
	fmt.Println("1. Copy these lines to your .env or Secret Manager.")
	fmt.Println("2. Give API_SECRET to the calling service via a SECURE channel.")
	fmt.Println("3. TOKEN_SECRET signs download links and never leaves the server.")
}
