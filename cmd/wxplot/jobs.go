package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/couchcryptid/wx-graphics/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// jobFile is the YAML layout read by batch, validate and publish. Defaults
// fill any string field a job leaves empty, and the style when a job sets none.
type jobFile struct {
	Defaults domain.PlotRequest   `yaml:"defaults"`
	Jobs     []domain.PlotRequest `yaml:"jobs"`
}

func readJobs(path string) ([]domain.PlotRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseJobs(data)
}

func parseJobs(data []byte) ([]domain.PlotRequest, error) {
	var jf jobFile
	if err := yaml.Unmarshal(data, &jf); err != nil {
		return nil, fmt.Errorf("parse job file: %w", err)
	}
	if len(jf.Jobs) == 0 {
		return nil, errors.New("job file has no jobs")
	}
	seen := make(map[string]bool, len(jf.Jobs))
	out := make([]domain.PlotRequest, len(jf.Jobs))
	for i, job := range jf.Jobs {
		job = applyDefaults(job, jf.Defaults)
		if job.ID == "" {
			job.ID = fmt.Sprintf("job-%03d", i+1)
		}
		if seen[job.ID] {
			return nil, fmt.Errorf("duplicate job id %q", job.ID)
		}
		seen[job.ID] = true
		out[i] = job
	}
	return out, nil
}

func applyDefaults(job, d domain.PlotRequest) domain.PlotRequest {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&job.Kind, d.Kind)
	fill(&job.Model, d.Model)
	fill(&job.Region, d.Region)
	fill(&job.Reference, d.Reference)
	fill(&job.Parameter, d.Parameter)
	fill(&job.Source, d.Source)
	fill(&job.Variable, d.Variable)
	fill(&job.Conversion, d.Conversion)
	fill(&job.Scale, d.Scale)
	fill(&job.Station, d.Station)
	if job.Modes == 0 {
		job.Modes = d.Modes
	}
	if job.Style.WidthIn == 0 && job.Style.HeightIn == 0 && job.Style.DPI == 0 {
		job.Style = d.Style
	}
	return job
}

// checkJob resolves every named lookup of a request without reading data.
func checkJob(req domain.PlotRequest) []string {
	var problems []string
	if err := req.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if req.Kind == domain.KindFieldMap || req.Kind == domain.KindEOF {
		if _, err := domain.LookupRegion(req.Region); err != nil {
			problems = append(problems, err.Error())
		}
		if _, err := domain.LookupReference(req.Reference); err != nil {
			problems = append(problems, err.Error())
		}
		if _, err := domain.LookupConversion(req.Conversion); err != nil {
			problems = append(problems, err.Error())
		}
		if req.Scale != "" {
			if _, err := domain.LookupScale(req.Scale); err != nil {
				problems = append(problems, err.Error())
			}
		}
	}
	return problems
}

func newBatchCmd(a *app) *cobra.Command {
	var keepGoing bool
	cmd := &cobra.Command{
		Use:   "batch <jobs.yaml>",
		Short: "Render every job of a YAML job file in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := readJobs(args[0])
			if err != nil {
				return err
			}
			failed := 0
			for _, job := range jobs {
				if err := a.render(cmd, job); err != nil {
					if !keepGoing {
						return err
					}
					failed++
					a.logger.Error("job failed", "id", job.ID, "error", err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d jobs failed", failed, len(jobs))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "continue after a failed job")
	return cmd
}

func newValidateCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <jobs.yaml>",
		Short: "Check a job file without rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := readJobs(args[0])
			if err != nil {
				return err
			}
			return reportJobs(cmd.OutOrStdout(), jobs)
		},
	}
}

func reportJobs(w io.Writer, jobs []domain.PlotRequest) error {
	bad := 0
	for _, job := range jobs {
		problems := checkJob(job)
		if len(problems) == 0 {
			fmt.Fprintf(w, "PASS %s (%s)\n", job.ID, job.Kind)
			continue
		}
		bad++
		fmt.Fprintf(w, "FAIL %s (%s)\n", job.ID, job.Kind)
		for _, p := range problems {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d jobs invalid", bad, len(jobs))
	}
	return nil
}

func newPublishCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <jobs.yaml>",
		Short: "Send the jobs of a job file to the render workers over Kafka",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := readJobs(args[0])
			if err != nil {
				return err
			}
			if err := reportJobs(io.Discard, jobs); err != nil {
				return err
			}
			msgs := make([]kafkago.Message, len(jobs))
			for i, job := range jobs {
				msg, err := requestMessage(job)
				if err != nil {
					return err
				}
				msgs[i] = msg
			}
			w := &kafkago.Writer{
				Addr:         kafkago.TCP(a.cfg.KafkaBrokers...),
				Topic:        a.cfg.KafkaSourceTopic,
				Balancer:     &kafkago.Hash{},
				RequiredAcks: kafkago.RequireAll,
			}
			defer w.Close()
			if err := w.WriteMessages(cmd.Context(), msgs...); err != nil {
				return fmt.Errorf("publish jobs: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d jobs to %s\n", len(msgs), a.cfg.KafkaSourceTopic)
			return nil
		},
	}
}

func requestMessage(req domain.PlotRequest) (kafkago.Message, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize plot request: %w", err)
	}
	return kafkago.Message{
		Key:     []byte(req.ID),
		Value:   data,
		Headers: []kafkago.Header{{Key: "kind", Value: []byte(req.Kind)}},
	}, nil
}

func newRegionsCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the named regions and reference systems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tNAME\tWEST\tEAST\tSOUTH\tNORTH")
			for _, r := range domain.Regions() {
				fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\n", r.Key, r.Name, r.West, r.East, r.South, r.North)
			}
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "REFERENCE\tLAYERS")
			for _, rs := range domain.ReferenceSystems() {
				layers := make([]string, len(rs.Layers))
				for i, l := range rs.Layers {
					layers[i] = l.Layer
				}
				fmt.Fprintf(tw, "%s\t%s\n", rs.Name, strings.Join(layers, ", "))
			}
			return tw.Flush()
		},
	}
}
