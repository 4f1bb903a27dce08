package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pb "github.com/cheggaaa/pb/v3"
	"github.com/google/subcommands"
	"github.com/kelseyhightower/envconfig"

	"github.com/helena-bio/helix-frontend-sub000/models"
	analysisType "github.com/helena-bio/helix-frontend-sub000/models/constants/analysis-type"
	assemblyId "github.com/helena-bio/helix-frontend-sub000/models/constants/assembly-id"
	"github.com/helena-bio/helix-frontend-sub000/models/constants/classification"
	"github.com/helena-bio/helix-frontend-sub000/models/constants/impact"
	"github.com/helena-bio/helix-frontend-sub000/models/constants/phase"
	s "github.com/helena-bio/helix-frontend-sub000/models/constants/sort"
	"github.com/helena-bio/helix-frontend-sub000/repositories"
	esRepository "github.com/helena-bio/helix-frontend-sub000/repositories/elasticsearch"
	"github.com/helena-bio/helix-frontend-sub000/repositories/memory"
	"github.com/helena-bio/helix-frontend-sub000/server"
	"github.com/helena-bio/helix-frontend-sub000/services"
	"github.com/helena-bio/helix-frontend-sub000/services/compression"
	"github.com/helena-bio/helix-frontend-sub000/services/pipeline"
	"github.com/helena-bio/helix-frontend-sub000/services/results"
	"github.com/helena-bio/helix-frontend-sub000/services/sanitation"
	"github.com/helena-bio/helix-frontend-sub000/utils"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&serveCmd{}, "")
	subcommands.Register(&reviewCmd{}, "")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

// -- serve

type serveCmd struct{}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the Helix annotation API" }
func (*serveCmd) Usage() string {
	return `serve:
  Run the annotation API, backed by elasticsearch when HELIX_ES_URL
  is set and by process memory otherwise.
`
}
func (*serveCmd) SetFlags(f *flag.FlagSet) {}

func (*serveCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	// Gather environment variables
	var cfg models.Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		fmt.Println(err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Using : \n"+

		"\tDebug : %t \n\n"+

		"\tVCF Directory Path : %s \n"+
		"\tSession Retention (hours) : %d\n"+
		"\tPhenotype Associations Path : %s\n"+
		"\tElasticsearch Url : %s \n"+
		"\tElasticsearch Username : %s\n\n"+

		"Running on Port : %s\n",

		cfg.Debug,
		cfg.Api.VcfPath,
		cfg.Api.SessionRetentionHours,
		cfg.Api.PhenotypePath,
		cfg.Elasticsearch.Url, cfg.Elasticsearch.Username,
		cfg.Api.Port)
	// --

	// Session storage: elasticsearch when configured, process memory otherwise
	var repository repositories.SessionRepository
	if cfg.Elasticsearch.Url != "" {
		es := utils.CreateEsConnection(cfg.Elasticsearch.Url, cfg.Elasticsearch.Username, cfg.Elasticsearch.Password)
		repository = esRepository.New(&cfg, es)
	} else {
		fmt.Println("No elasticsearch configured; sessions are kept in memory ..")
		repository = memory.New()
	}

	// retention sweeps
	sanitation.NewSanitationService(repository, &cfg)

	e := server.NewEcho(&cfg, repository)
	e.Logger.Fatal(e.Start(":" + cfg.Api.Port))

	return subcommands.ExitSuccess
}

// -- review

type reviewCmd struct {
	paramsPath string
	yes        bool
}

func (*reviewCmd) Name() string     { return "review" }
func (*reviewCmd) Synopsis() string { return "push a vcf through the full review pipeline" }
func (*reviewCmd) Usage() string {
	return `review -params <review.yaml> [-yes]:
  Compress, upload, validate and annotate a vcf against a running
  annotation API, then print the opening review table.
`
}

func (r *reviewCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.paramsPath, "params", "", "yaml file describing the review run")
	f.BoolVar(&r.yes, "yes", false, "advance past the quality summary without prompting")
}

func (r *reviewCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var cfg models.Config
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Println(err)
		return subcommands.ExitFailure
	}

	if r.paramsPath == "" {
		fmt.Println("Missing -params; nothing to review")
		return subcommands.ExitUsageError
	}
	params, loadErr := models.LoadReviewParams(r.paramsPath)
	if loadErr != nil {
		fmt.Println(loadErr)
		return subcommands.ExitFailure
	}

	if r.yes {
		cfg.Pipeline.AutoAdvanceQc = true
	}

	api := services.NewApiService(&cfg)
	compressionService := compression.NewCompressionService(&cfg)
	resultsService := results.NewResultsService(&cfg, api)
	pipelineService := pipeline.NewPipelineService(&cfg, api, compressionService, resultsService)

	updates := make(chan pipeline.Snapshot, 64)
	pipelineService.OnChange = func(snapshot pipeline.Snapshot) {
		updates <- snapshot
	}

	meta := models.SessionMeta{
		FileName:     filepath.Base(params.VcfPath),
		AnalysisType: analysisType.CastToAnalysisType(params.AnalysisType),
		CaseLabel:    params.CaseLabel,
		Retain:       params.Retain,
	}
	if params.AnalysisType == "" {
		meta.AnalysisType = analysisType.Germline
	}
	if params.AssemblyId != "" {
		meta.AssemblyId = assemblyId.CastToAssemblyId(params.AssemblyId)
	}

	fmt.Printf("Reviewing : \n"+
		"\tFile : %s \n"+
		"\tAnalysis Type : %s \n"+
		"\tAnnotation API : %s \n\n",
		params.VcfPath, meta.AnalysisType, cfg.Api.Url)

	if startErr := pipelineService.Start(params.VcfPath, meta); startErr != nil {
		fmt.Println(startErr)
		return subcommands.ExitFailure
	}

	bar := pb.New64(100)
	bar.SetWriter(os.Stdout)
	bar.Start()

	for snapshot := range updates {
		bar.SetCurrent(int64(snapshot.Progress))
		bar.Set("prefix", fmt.Sprintf("%-16s ", snapshot.Phase))

		switch snapshot.Phase {
		case phase.QcResults:
			// a non-primary build holds the gate even under -yes
			if !cfg.Pipeline.AutoAdvanceQc || !assemblyId.IsPrimaryAssembly(snapshot.Report.AssemblyId) {
				printValidationReport(snapshot.Report)

				fmt.Print("Continue to annotation? [y/N] : ")
				answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
				if strings.ToLower(strings.TrimSpace(answer)) != "y" {
					bar.Finish()
					fmt.Println("Stopping at the quality summary.")
					return subcommands.ExitSuccess
				}
				pipelineService.ContinueToProcessing()
			}
		case phase.Ready:
			bar.SetCurrent(100)
			bar.Finish()
			r.printReviewTable(&cfg, resultsService, params)
			return subcommands.ExitSuccess
		case phase.Error:
			bar.Finish()
			fmt.Printf("Review pipeline failed : %s\n", snapshot.Error)
			return subcommands.ExitFailure
		}
	}

	return subcommands.ExitSuccess
}

func (r *reviewCmd) printReviewTable(cfg *models.Config, resultsService *results.ResultsService, params *models.ReviewParams) {
	filter := models.FilterSet{SearchTerm: params.Filter.SearchTerm}
	if params.Filter.Classification != "" {
		filter.Classification = classification.CastToClassification(params.Filter.Classification)
	}
	if params.Filter.Impact != "" {
		filter.Impact = impact.CastToImpact(params.Filter.Impact)
	}

	filtered := resultsService.FilterGenes(filter)
	sorted := resultsService.SortGenes(filtered,
		s.CastToSortField(params.Sort.Field),
		s.CastToSortDirection(params.Sort.Direction))

	fmt.Printf("\n%d variants across %d genes", resultsService.TotalVariants(), resultsService.GeneCount())
	if len(sorted) != resultsService.GeneCount() {
		fmt.Printf(" (%d after filtering)", len(sorted))
	}
	fmt.Printf("\n\n")

	visibility := results.NewVisibilityController(cfg.Pipeline.VisibilityInitial, cfg.Pipeline.VisibilityStep)
	window := visibility.Window(filter, sorted)

	fmt.Printf("%-14s %9s %24s %10s\n", "GENE", "VARIANTS", "CLASSIFICATION", "IMPACT")
	for _, gene := range window {
		fmt.Printf("%-14s %9d %24s %10s\n",
			gene.Symbol, gene.TotalVariants, severestTier(gene), severestLevel(gene))
	}
	if visibility.HasMore(filter, sorted) {
		fmt.Printf("... and %d more genes; narrow the filter to see them sooner\n", len(sorted)-visibility.Visible())
	}

	if len(params.PhenotypeTerms) > 0 {
		matches, matchErr := resultsService.PhenotypeMatches(params.PhenotypeTerms)
		if matchErr != nil {
			fmt.Printf("Phenotype matching unavailable : %v\n", matchErr)
			return
		}

		fmt.Printf("\nPhenotype matches for %s :\n", strings.Join(params.PhenotypeTerms, ", "))
		if len(matches) == 0 {
			fmt.Println("\t(none)")
		}
		for _, match := range matches {
			fmt.Printf("\t%-14s %.2f (%s)\n", match.Gene, match.Score, strings.Join(match.Terms, ", "))
		}
	}
}

func printValidationReport(report *models.ValidationReport) {
	if report == nil {
		return
	}

	fmt.Printf("\nQuality summary :\n"+
		"\tVariants : %d\n"+
		"\tSamples : %d\n"+
		"\tGenome Build : %s\n",
		report.TotalVariants, report.SampleCount, report.AssemblyId)
	for _, warning := range report.Warnings {
		fmt.Printf("\tWarning : %s\n", warning)
	}
}

// severestTier names the most severe ACMG bucket a gene carries.
func severestTier(gene models.GeneSummary) string {
	for _, tier := range classification.Tiers() {
		if gene.Classifications[tier] > 0 {
			return string(tier)
		}
	}
	return "-"
}

func severestLevel(gene models.GeneSummary) string {
	for _, level := range impact.Levels() {
		if gene.Impacts[level] > 0 {
			return string(level)
		}
	}
	return "-"
}
