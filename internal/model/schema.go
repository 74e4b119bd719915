package model

import "github.com/rickgao/quant-archive/internal/normalize"

// Coercion is the type conversion applied to a mapped column.
type Coercion int

const (
	CoerceText    Coercion = iota // passed through unchanged
	CoerceFlag                    // boolean-like marker, passed through unchanged
	CoerceNumber                  // normalized float64
	CoerceInteger                 // normalized, truncated to int64
)

// Column describes one canonical column and the source headers that map to it.
type Column struct {
	Name     string
	Synonyms []string // tried in order; the canonical name is tried last
	Required bool     // a source without this column is rejected
	Coercion Coercion
}

// Schema is the ordered column set of one target table.
type Schema struct {
	Table           string
	PartitionColumn string // appended after Columns; empty for source-only schemas
	Columns         []Column
	Key             []string // composite primary key, partition column first
	Percent         normalize.PercentMode
}

// ColumnNames returns the physical column order, partition column last.
func (s Schema) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns)+1)
	for _, c := range s.Columns {
		names = append(names, c.Name)
	}
	if s.PartitionColumn != "" {
		names = append(names, s.PartitionColumn)
	}
	return names
}

// Position returns the physical position of name, or -1.
func (s Schema) Position(name string) int {
	for i, n := range s.ColumnNames() {
		if n == name {
			return i
		}
	}
	return -1
}

// Normalizer returns the value normalizer for the schema's percent policy.
func (s Schema) Normalizer() normalize.Normalizer {
	return normalize.Normalizer{Percent: s.Percent}
}

// ArchiveDateColumn is the partition column of every archive table.
const ArchiveDateColumn = "archive_date"

// StrategyTypeColumn tags ranking rows with their originating strategy pool.
const StrategyTypeColumn = "strategy_type"

// -----------------------------------------------------------------------------
// Strategy rankings (ods_ak_ranking_stocks)
// -----------------------------------------------------------------------------

// StrategyPool names one raw stock pool and the strategy label stored for it.
type StrategyPool struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// DefaultStrategyPools are the four daily screening pools.
var DefaultStrategyPools = []StrategyPool{
	{Key: "strong_stocks_raw", Label: "强势股池"},
	{Key: "consecutive_rise_raw", Label: "连续上涨"},
	{Key: "ljqs_raw", Label: "量价齐升"},
	{Key: "cxfl_raw", Label: "持续放量"},
}

// RankingSourceSchema maps a raw strategy pool before it is tagged.
var RankingSourceSchema = Schema{
	Columns: []Column{
		{Name: "stock_code", Synonyms: []string{"代码", "证券代码", "股票代码", "code"}, Required: true},
		{Name: "stock_name", Synonyms: []string{"名称", "股票名称", "股票简称"}},
	},
}

// RankingSchema is the strategy ranking table.
var RankingSchema = Schema{
	Table:           "ods_ak_ranking_stocks",
	PartitionColumn: ArchiveDateColumn,
	Key:             []string{ArchiveDateColumn, StrategyTypeColumn, "stock_code"},
	Columns: []Column{
		{Name: "stock_code", Required: true},
		{Name: StrategyTypeColumn, Required: true},
		{Name: "stock_name"},
	},
}

// -----------------------------------------------------------------------------
// Industry analysis (ods_ak_industry_analysis)
// -----------------------------------------------------------------------------

// IndustrySchema is the industry momentum table. Percent strings are ratios.
var IndustrySchema = Schema{
	Table:           "ods_ak_industry_analysis",
	PartitionColumn: ArchiveDateColumn,
	Key:             []string{ArchiveDateColumn, "industry_name"},
	Percent:         normalize.PercentRatio,
	Columns: []Column{
		{Name: "industry_name", Synonyms: []string{"行业名称", "行业"}, Required: true},
		{Name: "industry_index", Synonyms: []string{"行业指数"}, Coercion: CoerceNumber},
		{Name: "change_pct_now", Synonyms: []string{"涨幅_now"}, Coercion: CoerceNumber},
		{Name: "net_inflow_now", Synonyms: []string{"净额_now"}, Coercion: CoerceNumber},
		{Name: "total_inflow_money", Synonyms: []string{"流入资金"}, Coercion: CoerceNumber},
		{Name: "leading_stock", Synonyms: []string{"领涨股"}},
		{Name: "leading_stock_pct", Synonyms: []string{"领涨股-涨跌幅"}, Coercion: CoerceNumber},
		{Name: "net_inflow_3d", Synonyms: []string{"净额_3d"}, Coercion: CoerceNumber},
		{Name: "net_inflow_5d", Synonyms: []string{"净额_5d"}, Coercion: CoerceNumber},
		{Name: "net_inflow_10d", Synonyms: []string{"净额_10d"}, Coercion: CoerceNumber},
		{Name: "net_inflow_20d", Synonyms: []string{"净额_20d"}, Coercion: CoerceNumber},
		{Name: "turnover_rate", Synonyms: []string{"换手率"}, Coercion: CoerceNumber},
		{Name: "score_fund", Synonyms: []string{"资金分"}, Coercion: CoerceNumber},
		{Name: "score_price", Synonyms: []string{"价格分"}, Coercion: CoerceNumber},
		{Name: "score_turnover", Synonyms: []string{"换手分"}, Coercion: CoerceNumber},
		{Name: "score_trend", Synonyms: []string{"趋势得分"}, Coercion: CoerceNumber},
		{Name: "industry_signal", Synonyms: []string{"行业信号"}},
	},
}

// -----------------------------------------------------------------------------
// Consolidated strategy report (app_stock_strategy_report)
// -----------------------------------------------------------------------------

// ReportIndexName is the index name a report frame may carry instead of a
// stock code column.
const ReportIndexName = "股票代码"

// ReportSchema is the consolidated decision report. Percent strings keep
// their point value.
var ReportSchema = Schema{
	Table:           "app_stock_strategy_report",
	PartitionColumn: ArchiveDateColumn,
	Key:             []string{ArchiveDateColumn, "stock_code"},
	Percent:         normalize.PercentPoints,
	Columns: []Column{
		{Name: "stock_code", Synonyms: []string{ReportIndexName, "代码"}, Required: true},
		{Name: "stock_name", Synonyms: []string{"股票简称", "股票名称"}},
		{Name: "industry", Synonyms: []string{"行业"}},
		{Name: "close_price", Synonyms: []string{"最新价"}, Coercion: CoerceNumber},
		{Name: "is_strong_stock", Synonyms: []string{"强势股"}, Coercion: CoerceFlag},
		{Name: "is_vol_price_rise", Synonyms: []string{"量价齐升"}, Coercion: CoerceFlag},
		{Name: "consecutive_up_days", Synonyms: []string{"连涨天数"}, Coercion: CoerceInteger},
		{Name: "high_vol_days", Synonyms: []string{"放量天数"}, Coercion: CoerceInteger},
		{Name: "is_top10_industry", Synonyms: []string{"TOP10行业"}, Coercion: CoerceFlag},
		{Name: "macd_12269_signal", Synonyms: []string{"MACD_12269"}},
		{Name: "macd_12269_momentum", Synonyms: []string{"MACD_12269_动能"}},
		{Name: "macd_12269_dif", Synonyms: []string{"MACD_12269_DIF"}, Coercion: CoerceNumber},
		{Name: "macd_6135_signal", Synonyms: []string{"MACD_6135"}},
		{Name: "macd_6135_momentum", Synonyms: []string{"MACD_6135_动能"}},
		{Name: "macd_6135_dif", Synonyms: []string{"MACD_6135_DIF"}, Coercion: CoerceNumber},
		{Name: "kdj_signal", Synonyms: []string{"KDJ_Signal"}},
		{Name: "cci_signal", Synonyms: []string{"CCI_Signal"}},
		{Name: "rsi_signal", Synonyms: []string{"RSI_Signal"}},
		{Name: "boll_signal", Synonyms: []string{"BOLL_Signal"}},
		{Name: "report_buy_count", Synonyms: []string{"研报买入次数"}, Coercion: CoerceInteger},
		{Name: "is_full_bullish", Synonyms: []string{"完全多头排列"}, Coercion: CoerceFlag},
		{Name: "fund_flow_trend", Synonyms: []string{"资金动能"}, Coercion: CoerceNumber},
		{Name: "fund_inflow_5d", Synonyms: []string{"5日资金流入"}, Coercion: CoerceNumber},
		{Name: "fund_inflow_10d", Synonyms: []string{"10日资金流入"}, Coercion: CoerceNumber},
		{Name: "fund_inflow_20d", Synonyms: []string{"20日资金流入"}, Coercion: CoerceNumber},
		{Name: "stock_link", Synonyms: []string{"股票链接"}},
	},
}

// ArchiveSchemas lists every table the archive writes, in sync order.
var ArchiveSchemas = []Schema{RankingSchema, IndustrySchema, ReportSchema}
