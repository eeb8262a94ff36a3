package main

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/G-Node/formwork/formwork"
	"github.com/G-Node/formwork/formwork/form"
	"github.com/G-Node/formwork/formwork/validator"
	"github.com/spf13/cobra"
)

var numberRe = regexp.MustCompile(`^[0-9]*$`)

func main() {
	var (
		configFile string
		port       uint16
	)

	cmd := &cobra.Command{
		Use:   "example",
		Short: "Example form service",
		Long: `Serves a single example form and runs a job for each valid submission.

The job echoes the submitted values and waits for the given duration.

Examples:
  example
  example --config=example.yml --port=8080`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile, port)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Configuration file (JSON or YAML)")
	cmd.Flags().Uint16VarP(&port, "port", "p", 0, "Port to listen on (overrides the configuration file)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configFile string, port uint16) error {
	config := &formwork.Config{
		Title:       "Example form",
		Description: "Submit a value of 'error' in any field to make the job fail.",
		CookieName:  "formwork-example",
		DBPath:      "./example.db",
	}
	if configFile != "" {
		var err error
		config, err = formwork.ReadConfig(configFile)
		if err != nil {
			return err
		}
	}
	if port != 0 {
		config.Port = port
	}

	srv, err := formwork.NewService(exampleForm, exampleFunc, *config)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()
	srv.WaitForInterrupt()
	return nil
}

func exampleForm(env form.Env) (*form.Form, error) {
	f, err := form.New("example", form.MethodPost, true, env)
	if err != nil {
		return nil, err
	}

	name := form.NewElement("name", form.TextInput)
	name.SetAttribute("placeholder", "Name")
	name.SetValidator(validator.All(validator.Required(""), validator.MaxLength(64, "")))

	description := form.NewElement("description", form.TextArea)
	description.SetOptional(true)
	description.SetValidator(validator.MaxLength(1000, ""))

	duration := form.NewElement("duration", form.NumberInput)
	duration.SetValue("0")
	duration.SetAttribute("min", "0")
	duration.SetValidator(validator.Match(numberRe, "Seconds to wait must be a whole number"))

	species := form.NewElement("species", form.Select)
	species.SetOptions([]string{"Mus musculus", "Rattus norvegicus", "Danio rerio"})
	species.SetOptional(true)

	attachment := form.NewElement("attachment", form.FileInput)
	attachment.SetOptional(true)

	submit := form.NewButton("submit")
	submit.SetLabel("Run")

	fields := []form.Field{name, description, duration, species, attachment, submit}
	for _, fld := range fields {
		if err := f.AttachField(fld.Name(), fld); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func exampleFunc(formID string, values map[string]string) ([]string, error) {
	fail := false
	msgs := make([]string, 0)
	for k, v := range values {
		msgs = append(msgs, fmt.Sprintf("Example function got %s: %q", k, v))
		if v == "error" {
			msgs = append(msgs, "Found 'error' value. Stopping.")
			fail = true
		}
	}

	duration := values["duration"]
	if duration != "" {
		d, err := strconv.Atoi(duration)
		if err != nil {
			return msgs, fmt.Errorf("Duration not an integer: %s", err.Error())
		}
		msgs = append(msgs, fmt.Sprintf("Waiting %d seconds", d))
		time.Sleep(time.Second * time.Duration(d))
	}

	if fail {
		return msgs, fmt.Errorf("Failed to run: error detected")
	}
	log.Printf("Processed submission of form %s", formID)
	msgs = append(msgs, "All OK. Example function finished successfully.")
	return msgs, nil
}
