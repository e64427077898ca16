package builtin

import (
	"github.com/JonMunkholm/sheetcheck/internal/engine"
	"github.com/JonMunkholm/sheetcheck/internal/rules"
	"github.com/JonMunkholm/sheetcheck/internal/schema"
)

func init() {
	schema.Register(Servico())
}

// Servico is the salon service catalogue: one row per service offered, keyed
// by its description.
func Servico() schema.Definition {
	return schema.Definition{
		Key:         "servico",
		Label:       "Serviços",
		Description: "Service catalogue with price, commission and scheduling options",
		Sheet:       "servico",
		HeaderRow:   1,
		Columns: []engine.Column{
			{Key: "flagAtivo", Names: []string{"ativo"}, Required: true, Default: true, Type: rules.Bool},
			{Key: "descricao", Names: []string{"nome"}, Required: true, Before: rules.NotEmpty},
			{Key: "gservId", Names: []string{"grupo"}, Required: true, After: rules.NotEmpty},
			{Key: "preco", Names: []string{"valor"}, Required: true, Default: 1.0, Type: rules.Float},
			{Key: "comissao", Names: []string{"comissao"}, Required: true, Default: 0.0, Type: rules.Float, After: rules.Percent},
			{Key: "tempoExecucao", Names: []string{"execucao"}, Required: true, Default: "00:30:00", Type: rules.Time},
			{Key: "custosGerais", Names: []string{"custo"}, Default: 0.0, Type: rules.Float},
			{Key: "intervaloMarcacao", Names: []string{"intervalo"}, Default: "00:10:00", Type: rules.Time},
			{Key: "permiteEncaixe", Names: []string{"encaixe"}, Default: true, Type: rules.Bool},
			{Key: "permiteSimultaneidade", Names: []string{"simultaneidade"}, Default: true, Type: rules.Bool},
			{Key: "valPercComissao", Names: []string{"tipo comissao"}, Default: "P", After: rules.OneOf("P", "V")},
			{Key: "valPercCustos", Names: []string{"tipo custo"}, Default: "P", After: rules.OneOf("P", "V")},
			{Key: "flagMobilidade", Names: []string{"mobilidade"}, Default: true, Type: rules.Bool},
		},
		Row:           rules.RowFunc(checkServicoRow),
		DuplicateKeys: []string{"descricao"},
		ExportTable:   "servicos",
	}
}

// checkServicoRow rejects percentage commissions above 100%.
func checkServicoRow(row map[string]any) (map[string]any, error) {
	if row["valPercComissao"] != "P" {
		return row, nil
	}
	if c, ok := row["comissao"].(float64); ok && c > 100 {
		return nil, rules.Invalid("commission of %v%% is above 100%%", c)
	}
	return row, nil
}
