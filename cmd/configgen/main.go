package main

import (
	"flag"
	"log"
	"strings"

	"github.com/danmuck/amlctl/internal/config"
)

func main() {
	format := flag.String("format", "toml", "config format: toml|yaml")
	output := flag.String("output", "", "output path for config template (defaults to cmd/amld/config.<format>)")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to cmd/amld/config.<format>)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	ext := strings.ToLower(strings.TrimSpace(*format))
	if _, err := config.Template(ext); err != nil {
		log.Fatal(err)
	}
	defaultPath := "cmd/amld/config." + ext

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath
		}
		if _, err := config.Load(path); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated amld config at %s", path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath
	}
	if err := config.WriteTemplate(target, ext, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s amld config template to %s", ext, target)
}
