// Prints the current admin TOTP code, or enrolls a fresh secret when none is
// configured.
package main

import (
	"fmt"
	"os"
	"time"

	"bridge-backend/internal/handlers"

	"github.com/pquerna/otp/totp"
)

func main() {
	secret := os.Getenv("ADMIN_TOTP_SECRET")
	if secret == "" {
		key, err := handlers.GenerateTOTPSecret()
		if err != nil {
			fmt.Printf("Error generating TOTP secret: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("No ADMIN_TOTP_SECRET set, generated a new one:\n")
		fmt.Printf("Secret: %s\n", key.Secret())
		fmt.Printf("URL:    %s\n", key.URL())
		fmt.Println("Save the secret to ADMIN_TOTP_SECRET and rerun to print codes.")
		return
	}

	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		fmt.Printf("Error generating TOTP code: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Current TOTP Code: %s\n", code)
	fmt.Printf("Valid for: ~30 seconds\n")
}
