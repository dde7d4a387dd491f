// ABOUTME: Admin CLI for bootgate identity and binding management
// ABOUTME: Drives the admin HTTP API with JWT authentication

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/bootgate/bootgate/internal/gateway"
	"github.com/bootgate/bootgate/internal/store"
)

const banner = `
 _                 _              _                       _           _
| |__   ___   ___ | |_ __ _  __ _| |_ ___        __ _  __| |_ __ ___ (_)_ __
| '_ \ / _ \ / _ \| __/ _' |/ _' | __/ _ \_____ / _' |/ _' | '_ ' _ \| | '_ \
| |_) | (_) | (_) | || (_| | (_| | ||  __/_____| (_| | (_| | | | | | | | | | |
|_.__/ \___/ \___/ \__\__, |\__,_|\__\___|      \__,_|\__,_|_| |_| |_|_|_| |_|
                      |___/
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	baseURL := getEnv("BOOTGATE_URL", "http://localhost:8080")
	token := os.Getenv("BOOTGATE_TOKEN")

	c := &client{baseURL: strings.TrimRight(baseURL, "/"), token: token}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "principals":
		err = cmdPrincipals(c, args)
	case "profiles":
		err = cmdProfiles(c, args)
	case "manifests":
		err = cmdManifests(c, args)
	case "bindings":
		err = cmdBindings(c, args)
	case "secret-refs":
		err = cmdSecretRefs(c, args)
	case "api-keys":
		err = cmdAPIKeys(c, args)
	case "sessions":
		err = cmdSessions(c, args)
	case "status":
		err = cmdStatus(c)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: bootgate-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  status                      Show server version and health")
	fmt.Println("  principals [list]           List principals")
	fmt.Println("  principals create           Register a principal")
	fmt.Println("  principals delete <id>      Delete a principal by ID")
	fmt.Println("  profiles [list]             List profiles")
	fmt.Println("  profiles create             Create a profile from a JSON file")
	fmt.Println("  profiles delete <id>        Delete a profile by ID")
	fmt.Println("  manifests [list]            List manifests")
	fmt.Println("  manifests create            Create a manifest from a JSON file")
	fmt.Println("  manifests delete <id>       Delete a manifest by ID")
	fmt.Println("  bindings [list]             List bindings")
	fmt.Println("  bindings create             Bind a principal to a profile and manifest")
	fmt.Println("  bindings delete <id>        Delete a binding by ID")
	fmt.Println("  secret-refs [list]          List secret references")
	fmt.Println("  secret-refs create          Register a secret reference")
	fmt.Println("  api-keys create             Mint an API key for a principal")
	fmt.Println("  sessions [list]             List startup sessions")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  BOOTGATE_URL      Server base URL (default: http://localhost:8080)")
	fmt.Println("  BOOTGATE_TOKEN    Admin JWT token (required)")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  export BOOTGATE_TOKEN=\"eyJhbG...\"")
	fmt.Println("  bootgate-admin principals create --key herald --subject subject-herald")
	fmt.Println("  bootgate-admin profiles create --file worker-profile.json")
	fmt.Println("  bootgate-admin bindings create --principal <id> --profile <id> --manifest <id>")
	fmt.Println("  bootgate-admin sessions --status OPEN")
	fmt.Println()
}

// client wraps the admin HTTP API.
type client struct {
	baseURL string
	token   string
}

func (c *client) do(method, path string, reqBody, respBody any) error {
	if c.token == "" && !strings.HasPrefix(path, "/health") {
		return fmt.Errorf("BOOTGATE_TOKEN environment variable is required")
	}

	var reader io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr gateway.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Code != "" {
			if len(apiErr.Paths) > 0 {
				return fmt.Errorf("%s: %s (%s)", apiErr.Code, apiErr.Message, strings.Join(apiErr.Paths, ", "))
			}
			return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if respBody != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func cmdStatus(c *client) error {
	var health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := c.do(http.MethodGet, "/health", nil, &health); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Println("✓ Server is healthy")
	if health.Version != "" {
		fmt.Printf("  Version: %s\n", health.Version)
	}
	return nil
}

func cmdPrincipals(c *client, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}

	switch sub {
	case "list":
		return cmdPrincipalsList(c)
	case "create":
		return cmdPrincipalsCreate(c, args)
	case "delete":
		return cmdDelete(c, "/v1/admin/principals", "principal", args)
	default:
		return fmt.Errorf("unknown subcommand: principals %s", sub)
	}
}

func cmdPrincipalsList(c *client) error {
	var resp struct {
		Principals []gateway.PrincipalResponse `json:"principals"`
	}
	if err := c.do(http.MethodGet, "/v1/admin/principals", nil, &resp); err != nil {
		return err
	}

	printHeader("Principals")
	if len(resp.Principals) == 0 {
		fmt.Println("  (no principals)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tKEY\tTYPE\tSUBJECT\tSTATUS\tCREATED")
	fmt.Fprintln(w, "  --\t---\t----\t-------\t------\t-------")
	for _, p := range resp.Principals {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(p.ID, 12), p.PrincipalKey, p.PrincipalType,
			truncate(p.AuthSubject, 24), p.Status, formatCreated(p.CreatedAt))
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdPrincipalsCreate(c *client, args []string) error {
	var key, subject, ptype string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--key", "-k":
			if i+1 < len(args) {
				key = args[i+1]
				i++
			}
		case "--subject", "-s":
			if i+1 < len(args) {
				subject = args[i+1]
				i++
			}
		case "--type", "-t":
			if i+1 < len(args) {
				ptype = args[i+1]
				i++
			}
		}
	}

	if key == "" || subject == "" {
		return fmt.Errorf("usage: principals create --key <key> --subject <auth-subject> [--type component|admin]")
	}

	var created gateway.PrincipalResponse
	err := c.do(http.MethodPost, "/v1/admin/principals", gateway.CreatePrincipalRequest{
		PrincipalKey:  key,
		AuthSubject:   subject,
		PrincipalType: ptype,
	}, &created)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Created principal: %s\n", created.ID)
	fmt.Printf("  Key:      %s\n", created.PrincipalKey)
	fmt.Printf("  Subject:  %s\n", created.AuthSubject)
	fmt.Printf("  Type:     %s\n", created.PrincipalType)
	return nil
}

func cmdProfiles(c *client, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}

	switch sub {
	case "list":
		return cmdProfilesList(c)
	case "create":
		return cmdCreateFromFile[gateway.CreateProfileRequest, gateway.ProfileResponse](c, "/v1/admin/profiles", "profile", args)
	case "delete":
		return cmdDelete(c, "/v1/admin/profiles", "profile", args)
	default:
		return fmt.Errorf("unknown subcommand: profiles %s", sub)
	}
}

func cmdProfilesList(c *client) error {
	var resp struct {
		Profiles []gateway.ProfileResponse `json:"profiles"`
	}
	if err := c.do(http.MethodGet, "/v1/admin/profiles", nil, &resp); err != nil {
		return err
	}

	printHeader("Profiles")
	if len(resp.Profiles) == 0 {
		fmt.Println("  (no profiles)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tKEY\tSLA\tCREATED")
	fmt.Fprintln(w, "  --\t---\t---\t-------")
	for _, p := range resp.Profiles {
		fmt.Fprintf(w, "  %s\t%s\t%ds\t%s\n",
			truncate(p.ID, 12), p.ProfileKey, p.StartupSLASeconds, formatCreated(p.CreatedAt))
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdManifests(c *client, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}

	switch sub {
	case "list":
		return cmdManifestsList(c)
	case "create":
		return cmdCreateFromFile[gateway.CreateManifestRequest, gateway.ManifestResponse](c, "/v1/admin/manifests", "manifest", args)
	case "delete":
		return cmdDelete(c, "/v1/admin/manifests", "manifest", args)
	default:
		return fmt.Errorf("unknown subcommand: manifests %s", sub)
	}
}

func cmdManifestsList(c *client) error {
	var resp struct {
		Manifests []gateway.ManifestResponse `json:"manifests"`
	}
	if err := c.do(http.MethodGet, "/v1/admin/manifests", nil, &resp); err != nil {
		return err
	}

	printHeader("Manifests")
	if len(resp.Manifests) == 0 {
		fmt.Println("  (no manifests)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tKEY\tDEPLOYMENT\tVERSION\tCREATED")
	fmt.Fprintln(w, "  --\t---\t----------\t-------\t-------")
	for _, m := range resp.Manifests {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%d\t%s\n",
			truncate(m.ID, 12), m.ManifestKey, m.DeploymentKey, m.Version, formatCreated(m.CreatedAt))
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdBindings(c *client, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}

	switch sub {
	case "list":
		return cmdBindingsList(c)
	case "create":
		return cmdBindingsCreate(c, args)
	case "delete":
		return cmdDelete(c, "/v1/admin/bindings", "binding", args)
	default:
		return fmt.Errorf("unknown subcommand: bindings %s", sub)
	}
}

func cmdBindingsList(c *client) error {
	var resp struct {
		Bindings []gateway.AdminBindingResponse `json:"bindings"`
	}
	if err := c.do(http.MethodGet, "/v1/admin/bindings", nil, &resp); err != nil {
		return err
	}

	printHeader("Bindings")
	if len(resp.Bindings) == 0 {
		fmt.Println("  (no bindings)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tPRINCIPAL\tPROFILE\tMANIFEST\tACTIVE\tCREATED")
	fmt.Fprintln(w, "  --\t---------\t-------\t--------\t------\t-------")
	for _, b := range resp.Bindings {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%v\t%s\n",
			truncate(b.ID, 12), truncate(b.PrincipalID, 12), truncate(b.ProfileID, 12),
			truncate(b.ManifestID, 12), b.Active, formatCreated(b.CreatedAt))
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdBindingsCreate(c *client, args []string) error {
	var principalID, profileID, manifestID, overridesFile string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--principal", "-p":
			if i+1 < len(args) {
				principalID = args[i+1]
				i++
			}
		case "--profile":
			if i+1 < len(args) {
				profileID = args[i+1]
				i++
			}
		case "--manifest", "-m":
			if i+1 < len(args) {
				manifestID = args[i+1]
				i++
			}
		case "--overrides", "-o":
			if i+1 < len(args) {
				overridesFile = args[i+1]
				i++
			}
		}
	}

	if principalID == "" || profileID == "" || manifestID == "" {
		return fmt.Errorf("usage: bindings create --principal <id> --profile <id> --manifest <id> [--overrides <file.json>]")
	}

	req := gateway.CreateBindingRequest{
		PrincipalID: principalID,
		ProfileID:   profileID,
		ManifestID:  manifestID,
	}
	if overridesFile != "" {
		raw, err := os.ReadFile(overridesFile)
		if err != nil {
			return fmt.Errorf("reading overrides: %w", err)
		}
		var overrides store.Doc
		if err := json.Unmarshal(raw, &overrides); err != nil {
			return fmt.Errorf("parsing overrides: %w", err)
		}
		req.Overrides = overrides
	}

	var created gateway.AdminBindingResponse
	if err := c.do(http.MethodPost, "/v1/admin/bindings", req, &created); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Created binding: %s\n", created.ID)
	fmt.Printf("  Principal:  %s\n", created.PrincipalID)
	fmt.Printf("  Profile:    %s\n", created.ProfileID)
	fmt.Printf("  Manifest:   %s\n", created.ManifestID)
	return nil
}

func cmdSecretRefs(c *client, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}

	switch sub {
	case "list":
		return cmdSecretRefsList(c)
	case "create":
		return cmdSecretRefsCreate(c, args)
	case "delete":
		return cmdDelete(c, "/v1/admin/secret-refs", "secret ref", args)
	default:
		return fmt.Errorf("unknown subcommand: secret-refs %s", sub)
	}
}

func cmdSecretRefsList(c *client) error {
	var resp struct {
		SecretRefs []gateway.SecretRefResponse `json:"secret_refs"`
	}
	if err := c.do(http.MethodGet, "/v1/admin/secret-refs", nil, &resp); err != nil {
		return err
	}

	printHeader("Secret References")
	if len(resp.SecretRefs) == 0 {
		fmt.Println("  (no secret refs)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tKEY\tKIND\tREF\tSTATUS")
	fmt.Fprintln(w, "  --\t---\t----\t---\t------")
	for _, ref := range resp.SecretRefs {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			truncate(ref.ID, 12), ref.SecretKey, ref.RefKind, ref.RefName, ref.Status)
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdSecretRefsCreate(c *client, args []string) error {
	var key, kind, name string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--key", "-k":
			if i+1 < len(args) {
				key = args[i+1]
				i++
			}
		case "--kind":
			if i+1 < len(args) {
				kind = args[i+1]
				i++
			}
		case "--ref", "-r":
			if i+1 < len(args) {
				name = args[i+1]
				i++
			}
		}
	}

	if key == "" {
		return fmt.Errorf("usage: secret-refs create --key <secret-key> [--kind env|file] [--ref <name>]")
	}
	if name == "" {
		name = key
	}

	var created gateway.SecretRefResponse
	err := c.do(http.MethodPost, "/v1/admin/secret-refs", gateway.CreateSecretRefRequest{
		SecretKey: key,
		RefKind:   kind,
		RefName:   name,
	}, &created)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Created secret ref: %s\n", created.ID)
	fmt.Printf("  Key:   %s\n", created.SecretKey)
	fmt.Printf("  Kind:  %s\n", created.RefKind)
	fmt.Printf("  Ref:   %s\n", created.RefName)
	return nil
}

func cmdAPIKeys(c *client, args []string) error {
	if len(args) < 1 || args[0] != "create" {
		return fmt.Errorf("usage: api-keys create --principal <id> --name <name> [--expires <RFC3339>]")
	}
	args = args[1:]

	var principalID, name, expires string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--principal", "-p":
			if i+1 < len(args) {
				principalID = args[i+1]
				i++
			}
		case "--name", "-n":
			if i+1 < len(args) {
				name = args[i+1]
				i++
			}
		case "--expires", "-e":
			if i+1 < len(args) {
				expires = args[i+1]
				i++
			}
		}
	}

	if principalID == "" || name == "" {
		return fmt.Errorf("usage: api-keys create --principal <id> --name <name> [--expires <RFC3339>]")
	}

	req := gateway.CreateAPIKeyRequest{PrincipalID: principalID, Name: name}
	if expires != "" {
		t, err := time.Parse(time.RFC3339, expires)
		if err != nil {
			return fmt.Errorf("parsing --expires: %w", err)
		}
		req.ExpiresAt = &t
	}

	var created gateway.CreateAPIKeyResponse
	if err := c.do(http.MethodPost, "/v1/admin/api-keys", req, &created); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	green.Printf("✓ Created API key: %s\n", created.KeyID)
	fmt.Printf("  Name: %s\n", created.Name)
	if created.ExpiresAt != "" {
		fmt.Printf("  Expires: %s\n", created.ExpiresAt)
	}
	fmt.Println()
	yellow.Println("  Store this key now. It will not be shown again:")
	fmt.Printf("  %s\n", created.APIKey)
	return nil
}

func cmdSessions(c *client, args []string) error {
	var status, component string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "list":
			// accepted for symmetry with other commands
		case "--status", "-s":
			if i+1 < len(args) {
				status = args[i+1]
				i++
			}
		case "--component", "-c":
			if i+1 < len(args) {
				component = args[i+1]
				i++
			}
		}
	}

	path := "/v1/admin/sessions"
	params := []string{}
	if status != "" {
		params = append(params, "status="+status)
	}
	if component != "" {
		params = append(params, "component_key="+component)
	}
	if len(params) > 0 {
		path += "?" + strings.Join(params, "&")
	}

	var resp struct {
		Sessions []gateway.SessionResponse `json:"sessions"`
	}
	if err := c.do(http.MethodGet, path, nil, &resp); err != nil {
		return err
	}

	printHeader("Startup Sessions")
	if len(resp.Sessions) == 0 {
		fmt.Println("  (no sessions)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tCOMPONENT\tPROFILE\tSTATUS\tMIRROR\tOPENED\tDEADLINE")
	fmt.Fprintln(w, "  --\t---------\t-------\t------\t------\t------\t--------")
	for _, s := range resp.Sessions {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(s.StartupID, 12), s.ComponentKey, s.ProfileKey,
			s.Status, s.MirrorStatus, formatCreated(s.OpenedAt), formatCreated(s.DeadlineAt))
	}
	w.Flush()
	fmt.Println()
	return nil
}

// cmdCreateFromFile posts a JSON document from disk, for entities whose
// payloads are too structured for flags.
func cmdCreateFromFile[Req, Resp any](c *client, path, kind string, args []string) error {
	var file string
	for i := 0; i < len(args); i++ {
		if (args[i] == "--file" || args[i] == "-f") && i+1 < len(args) {
			file = args[i+1]
			i++
		}
	}
	if file == "" {
		return fmt.Errorf("usage: %ss create --file <%s.json>", kind, kind)
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", kind, err)
	}
	var req Req
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parsing %s: %w", kind, err)
	}

	var created Resp
	if err := c.do(http.MethodPost, path, req, &created); err != nil {
		return err
	}

	pretty, _ := json.MarshalIndent(created, "  ", "  ")
	green := color.New(color.FgGreen)
	green.Printf("✓ Created %s\n", kind)
	fmt.Printf("  %s\n", pretty)
	return nil
}

func cmdDelete(c *client, path, kind string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %ss delete <id>", kind)
	}
	id := args[0]

	if err := c.do(http.MethodDelete, path+"/"+id, nil, nil); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Deleted %s: %s\n", kind, id)
	return nil
}

func printHeader(title string) {
	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Printf("  %s\n", title)
	cyan.Printf("  %s\n", strings.Repeat("-", len(title)))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-1] + "…"
}

func formatCreated(s string) string {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.Format("Jan 02 15:04")
	}
	return s
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
