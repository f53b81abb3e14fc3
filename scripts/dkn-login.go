package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultBaseURL = "https://dkncloudna.com"

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResult struct {
	BaseURL   string    `json:"base_url"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	FetchedAt time.Time `json:"fetched_at"`
}

func main() {
	var (
		email           = flag.String("email", "", "DKN Cloud NA account email")
		password        = flag.String("password", "", "DKN Cloud NA account password")
		credentialsPath = flag.String("credentials-file", "", "Path to credentials file (YAML or JSON) with email/password")
		baseURL         = flag.String("base-url", defaultBaseURL, "API base URL")
		outPath         = flag.String("out", "/tmp/dkn-session.json", "Output path for session token JSON")
		timeoutSeconds  = flag.Int("timeout", 30, "Seconds to wait for the login request")
	)
	flag.Parse()

	creds := credentials{Email: strings.TrimSpace(*email), Password: *password}
	if (creds.Email == "" || creds.Password == "") && *credentialsPath != "" {
		fileCreds, err := loadCredentials(*credentialsPath)
		if err != nil {
			fatal(err)
		}
		if creds.Email == "" {
			creds.Email = fileCreds.Email
		}
		if creds.Password == "" {
			creds.Password = fileCreds.Password
		}
	}

	if creds.Email == "" || creds.Password == "" {
		fatal(errors.New("email and password are required (or provide credentials-file)"))
	}

	base := strings.TrimSuffix(strings.TrimSpace(*baseURL), "/")
	token, err := login(base, creds, time.Duration(*timeoutSeconds)*time.Second)
	if err != nil {
		fatal(err)
	}

	out := loginResult{
		BaseURL:   base,
		Email:     creds.Email,
		Token:     token,
		FetchedAt: time.Now().UTC(),
	}
	if err := writeJSON(*outPath, out); err != nil {
		fatal(err)
	}

	fmt.Printf("Login OK. Wrote session token JSON to %s\n", *outPath)
	fmt.Println("Try: curl -H \"Authorization: Bearer $(jq -r .token " + *outPath + ")\" " + base + "/api/v1/installations")
}

func login(baseURL string, creds credentials, timeout time.Duration) (string, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/auth/login", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return "", errors.New("login rejected: check email and password")
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("login failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("login response missing token")
	}
	return out.Token, nil
}

func loadCredentials(path string) (credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return credentials{}, err
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return credentials{}, errors.New("credentials file is empty")
	}

	if strings.HasPrefix(trimmed, "{") {
		var out credentials
		if err := json.Unmarshal(data, &out); err != nil {
			return credentials{}, err
		}
		return out, nil
	}
	return parseCredentialsYAML(data)
}

func parseCredentialsYAML(data []byte) (credentials, error) {
	var out credentials
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if hash := strings.Index(value, "#"); hash >= 0 {
			value = strings.TrimSpace(value[:hash])
		}
		value = strings.Trim(value, "\"'")

		switch strings.TrimSpace(key) {
		case "email":
			out.Email = value
		case "password":
			out.Password = value
		}
	}
	return out, nil
}

func writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
