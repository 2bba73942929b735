package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// postRefresh implements spec.md §4.2's refresh() transport step: POST the
// configured clientId to the refresh endpoint, attaching the current cookie
// jar. Returns the domain code and, on success, the new access/refresh
// tokens.
func (c *Client) postRefresh(ctx context.Context) (code, accessToken, refreshToken string, err error) {
	jar, err := c.store.LoadCookies()
	if err != nil {
		return "", "", "", err
	}

	body, _ := json.Marshal(map[string]string{"clientId": c.clientID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.RefreshURL, strings.NewReader(string(body)))
	if err != nil {
		return "", "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range jar {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", "", fmt.Errorf("auth: refresh request: %w", err)
	}
	defer resp.Body.Close()

	var decoded struct {
		Code string `json:"code"`
		Data struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"data"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", "", fmt.Errorf("auth: read refresh body: %w", err)
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", "", "", fmt.Errorf("auth: decode refresh body: %w", err)
	}
	return decoded.Code, decoded.Data.AccessToken, decoded.Data.RefreshToken, nil
}

// accountSuspended checks whether email is currently banned (spec.md §4.2
// step 2, FS_AU4030). The actual unban UI/flow is an external collaborator
// (spec.md §1 non-goal); this only detects the condition.
func (c *Client) accountSuspended(ctx context.Context, email string) (bool, error) {
	if c.endpoints.AccountExistsURL == "" {
		return false, nil
	}
	u := c.endpoints.AccountExistsURL + "?email=" + url.QueryEscape(email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("auth: account check request: %w", err)
	}
	defer resp.Body.Close()

	var decoded struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return false, nil
	}
	return decoded.Code == "FS_AU4030", nil
}

// authorizeInit performs spec.md §4.2 step 3: obtain a 30-char authorizeKey.
func (c *Client) authorizeInit(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.AuthorizeInitURL, strings.NewReader("{}"))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth: authorize:init request: %w", err)
	}
	defer resp.Body.Close()

	var decoded struct {
		Data struct {
			AuthorizeKey string `json:"authorizeKey"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("auth: decode authorize:init body: %w", err)
	}
	if decoded.Data.AuthorizeKey == "" {
		return "", fmt.Errorf("auth: authorize:init returned empty authorizeKey")
	}
	return decoded.Data.AuthorizeKey, nil
}

// authenticate performs spec.md §4.2 step 4: submit credentials plus the
// PKCE challenge/state, obtaining a 30-char authenticateKey.
func (c *Client) authenticate(ctx context.Context, email, password, authorizeKey, challenge, state string) (string, error) {
	payload, _ := json.Marshal(map[string]string{
		"email":              email,
		"password":           password,
		"authorizeKey":       authorizeKey,
		"codeChallenge":      challenge,
		"codeChallengeMethod": "S256",
		"state":              state,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.AuthenticateURL, strings.NewReader(string(payload)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth: authenticate request: %w", err)
	}
	defer resp.Body.Close()

	var decoded struct {
		Code string `json:"code"`
		Data struct {
			AuthenticateKey string `json:"authenticateKey"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("auth: decode authenticate body: %w", err)
	}
	if decoded.Code != "" && decoded.Code != "0000" {
		return "", fmt.Errorf("auth: authenticate domain error %s", decoded.Code)
	}
	if decoded.Data.AuthenticateKey == "" {
		return "", fmt.Errorf("auth: authenticate returned empty authenticateKey")
	}
	return decoded.Data.AuthenticateKey, nil
}

// tokenIssue performs spec.md §4.2 step 6: exchange the code and PKCE
// verifier for an access token and refresh token.
func (c *Client) tokenIssue(ctx context.Context, code, verifier string) (accessToken, refreshToken string, err error) {
	payload, _ := json.Marshal(map[string]string{
		"code":         code,
		"codeVerifier": verifier,
		"clientId":     c.clientID,
	})
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.TokenIssueURL, strings.NewReader(string(payload)))
	if reqErr != nil {
		return "", "", reqErr
	}
	req.Header.Set("Content-Type", "application/json")
	resp, doErr := c.http.Do(req)
	if doErr != nil {
		return "", "", fmt.Errorf("auth: token:issue request: %w", doErr)
	}
	defer resp.Body.Close()

	var decoded struct {
		Code string `json:"code"`
		Data struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", "", fmt.Errorf("auth: decode token:issue body: %w", err)
	}
	if decoded.Code != "" && decoded.Code != "0000" {
		return "", "", fmt.Errorf("auth: token:issue domain error %s", decoded.Code)
	}
	if decoded.Data.AccessToken == "" {
		return "", "", fmt.Errorf("auth: token:issue returned empty accessToken")
	}
	return decoded.Data.AccessToken, decoded.Data.RefreshToken, nil
}
