package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/modscf/gateway/pkg/config"
	"github.com/modscf/gateway/pkg/curseforge"
)

const tokenEnv = "CURSEFORGE_ETERNAL_API_TOKEN"

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		if errors.Is(err, errUnknownCommand) {
			printUsage(os.Stderr)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var errUnknownCommand = errors.New("unknown command")

func run(ctx context.Context, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "project":
		return commandProject(ctx, args, out)
	case "file":
		return commandFile(ctx, args, out)
	case "files":
		return commandFiles(ctx, args, out)
	case "version", "--version", "-v":
		fmt.Fprintln(out, strings.TrimSpace(buildVersion))
		return nil
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}
}

type clientFlags struct {
	token   *string
	api     *string
	timeout *time.Duration
	json    *bool
}

func registerClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		token:   fs.String("token", "", "CurseForge API key (default $"+tokenEnv+")"),
		api:     fs.String("api", curseforge.DefaultBaseURL, "CurseForge API base URL"),
		timeout: fs.Duration("timeout", 15*time.Second, "Request timeout"),
		json:    fs.Bool("json", false, "Print raw JSON"),
	}
}

func (f clientFlags) client() (*curseforge.Client, error) {
	token, err := resolveToken(*f.token)
	if err != nil {
		return nil, err
	}
	return curseforge.New(token, curseforge.WithBaseURL(*f.api))
}

// resolveToken prefers the flag, then the environment, then an interactive prompt.
func resolveToken(flagValue string) (string, error) {
	if token := strings.TrimSpace(flagValue); token != "" {
		return token, nil
	}
	if token, ok := config.Lookup(tokenEnv); ok {
		return token, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--token or %s is required", tokenEnv)
	}
	fmt.Fprint(os.Stderr, "CurseForge API key: ")
	secret, err := term.ReadPassword(fd)
	fmt.Fprint(os.Stderr, "\n")
	if err != nil {
		return "", fmt.Errorf("read api key: %w", err)
	}
	token := strings.TrimSpace(string(secret))
	if token == "" {
		return "", errors.New("api key must not be empty")
	}
	return token, nil
}

func parseIDArg(fs *flag.FlagSet, usage string) (uint64, error) {
	if fs.NArg() != 1 {
		return 0, errors.New(usage)
	}
	id, err := strconv.ParseUint(fs.Arg(0), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", fs.Arg(0))
	}
	return id, nil
}

func commandProject(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("project", flag.ContinueOnError)
	flags := registerClientFlags(fs)
	resolve := fs.Bool("resolve", false, "Fetch project details instead of printing the redirect target")
	if err := fs.Parse(args); err != nil {
		return err
	}
	projectID, err := parseIDArg(fs, "usage: modscf project [--resolve] [--json] <project-id>")
	if err != nil {
		return err
	}
	if !*resolve {
		fmt.Fprintln(out, curseforge.ProjectPageURL(projectID))
		return nil
	}

	client, err := flags.client()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, *flags.timeout)
	defer cancel()
	project, err := client.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if *flags.json {
		return printJSON(out, project)
	}
	fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%d downloads\n", project.ID, project.Slug, project.Status, project.Links.WebsiteURL, project.DownloadCount)
	return nil
}

func commandFile(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("file", flag.ContinueOnError)
	flags := registerClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	fileID, err := parseIDArg(fs, "usage: modscf file [--json] <file-id>")
	if err != nil {
		return err
	}
	client, err := flags.client()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, *flags.timeout)
	defer cancel()

	project, file, err := client.GetFileInfo(ctx, fileID)
	if err != nil {
		return err
	}
	if *flags.json {
		return printJSON(out, struct {
			URL     string             `json:"url"`
			Project curseforge.Project `json:"project"`
			File    curseforge.File    `json:"file"`
		}{project.FileURL(file.ID), project, file})
	}
	fmt.Fprintln(out, project.FileURL(file.ID))
	fmt.Fprintf(out, "project\t%d\t%s\n", project.ID, project.Name)
	fmt.Fprintf(out, "file\t%d\t%s\t%s\t%s\n", file.ID, file.FileName, file.ReleaseType, file.Status)
	if sha1, ok := file.Hash(curseforge.HashSHA1); ok {
		fmt.Fprintf(out, "sha1\t%s\n", sha1)
	}
	return nil
}

func commandFiles(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("files", flag.ContinueOnError)
	flags := registerClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("usage: modscf files [--json] <file-id>...")
	}
	ids := make([]uint64, 0, fs.NArg())
	for _, raw := range fs.Args() {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", raw)
		}
		ids = append(ids, id)
	}
	client, err := flags.client()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, *flags.timeout)
	defer cancel()

	files, err := client.GetFiles(ctx, ids)
	if err != nil {
		return err
	}
	if *flags.json {
		return printJSON(out, files)
	}
	found := make([]uint64, 0, len(files))
	for id := range files {
		found = append(found, id)
	}
	sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })
	for _, id := range found {
		f := files[id]
		fmt.Fprintf(out, "%d\t%d\t%s\t%s\n", f.ID, f.ProjectID, f.FileName, f.ReleaseType)
	}
	for _, id := range ids {
		if _, ok := files[id]; !ok {
			fmt.Fprintf(out, "%d\tnot found\n", id)
		}
	}
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage(out io.Writer) {
	fmt.Fprintf(out, "modscf %s\n\n", buildVersion)
	fmt.Fprint(out, `Usage:
	modscf project [--resolve] [--json] [--token key] [--api url] <project-id>
	modscf file [--json] [--token key] [--api url] <file-id>
	modscf files [--json] [--token key] [--api url] <file-id>...
	modscf version
`)
}
