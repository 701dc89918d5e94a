// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"

	"mortgage-workflow/internal/underwriting"
	"mortgage-workflow/pkg/registry"
)

var registryPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	defaultCmd := flag.NewFlagSet("default", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{addCmd, defaultCmd, validateCmd, listCmd} {
		fs.StringVar(&registryPath, "path", "configs/underwriting-rules.json", "Path to rule registry file")
	}

	ruleFile := addCmd.String("file", "", "Rule set JSON document to publish")
	makeDefault := addCmd.Bool("default", false, "Make the published version the default")
	version := defaultCmd.String("version", "", "Rule set version to make the default")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *ruleFile == "" {
			fmt.Println("Error: -file is required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		published, err := addRuleSet(*ruleFile, *makeDefault)
		if err != nil {
			fmt.Printf("Error publishing rule set: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Published rule set %s\n", published)

	case "default":
		defaultCmd.Parse(os.Args[2:])
		if *version == "" {
			fmt.Println("Error: -version is required.")
			defaultCmd.Usage()
			os.Exit(1)
		}
		if err := setDefault(*version); err != nil {
			fmt.Printf("Error setting default: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default rule set is now %s\n", *version)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		if len(reg.Versions()) == 0 {
			fmt.Println("Registry validation failed: no rule sets published")
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d rule sets.\n", len(reg.Versions()))

	case "list":
		listCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			fmt.Printf("Error loading registry: %v\n", err)
			os.Exit(1)
		}
		for _, v := range reg.Versions() {
			marker := " "
			if v == reg.DefaultVersion() {
				marker = "*"
			}
			rs, _ := reg.RuleSet(v)
			fmt.Printf("%s %s (%d rules) %s\n", marker, v, len(rs.Rules), rs.Description)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func loadOrCreate() (*registry.RuleRegistry, error) {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		if os.IsNotExist(err) {
			return registry.New(), nil
		}
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	return reg, nil
}

func addRuleSet(file string, makeDefault bool) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read rule set: %w", err)
	}
	rs, err := underwriting.ParseRuleSet(data)
	if err != nil {
		return "", err
	}

	reg, err := loadOrCreate()
	if err != nil {
		return "", err
	}
	if err := reg.Add(rs); err != nil {
		return "", err
	}
	if makeDefault {
		if err := reg.SetDefault(rs.Version); err != nil {
			return "", err
		}
	}
	return rs.Version, reg.Save(registryPath)
}

func setDefault(version string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.SetDefault(version); err != nil {
		return err
	}
	return reg.Save(registryPath)
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  add       Publish a new underwriting rule set version
  default   Change the default rule set version
  validate  Validate the registry file
  list      List published rule set versions
  help      Show this help message

Examples:
  registry-updater add -file rules-2025.2.json -default
  registry-updater default -version 2025.1
  registry-updater validate -path configs/underwriting-rules.json`)
}
