package cli

// import.go implements `csv2pg import`: one transactional import of a
// local CSV file described by a YAML schema file.

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arnevik/csv2pg/internal/importer"
)

// schemaFile mirrors importer.ImportSchema for YAML input.
type schemaFile struct {
	Table            string `yaml:"table"`
	TableComment     string `yaml:"tableComment"`
	FirstRowIsHeader *bool  `yaml:"firstRowIsHeader"`
	Columns          []struct {
		Name    string `yaml:"name"`
		DBType  string `yaml:"dbType"`
		Include *bool  `yaml:"include"`
		Comment string `yaml:"comment"`
	} `yaml:"columns"`
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a CSV file into a new destination table",
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath, _ := cmd.Flags().GetString("file")
		schemaPath, _ := cmd.Flags().GetString("schema")

		schema, err := loadSchemaFile(schemaPath)
		if err != nil {
			return err
		}

		f, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()

		pool, cat, cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		defer pool.Close()

		imp, err := importer.New(pool, cat, cfg.Import.DestSchema)
		if err != nil {
			return err
		}

		result, err := imp.Import(cmd.Context(), schema, f)
		if result != nil {
			fmt.Printf("imported %d rows into %s\n", result.RowsInserted, result.QualifiedTable)
		}
		return err
	},
}

func init() {
	importCmd.Flags().String("file", "", "path to the CSV file (required)")
	importCmd.Flags().String("schema", "", "path to the YAML schema file (required)")
	_ = importCmd.MarkFlagRequired("file")
	_ = importCmd.MarkFlagRequired("schema")
	rootCmd.AddCommand(importCmd)
}

// loadSchemaFile parses a YAML schema file into an ImportSchema.
func loadSchemaFile(path string) (importer.ImportSchema, error) {
	var schema importer.ImportSchema

	data, err := os.ReadFile(path)
	if err != nil {
		return schema, fmt.Errorf("read schema file: %w", err)
	}

	var sf schemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return schema, fmt.Errorf("parse schema file: %w", err)
	}

	schema.TableName = sf.Table
	schema.TableComment = sf.TableComment
	schema.FirstRowIsHeader = sf.FirstRowIsHeader
	for _, c := range sf.Columns {
		schema.Columns = append(schema.Columns, importer.ColumnSpec{
			Name:    c.Name,
			DBType:  c.DBType,
			Include: c.Include,
			Comment: c.Comment,
		})
	}
	return schema, nil
}
