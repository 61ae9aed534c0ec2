package pricing

// AssetClass identifies which price source serves an asset.
type AssetClass string

// Asset classes.
const (
	ClassCrypto AssetClass = "crypto"
	ClassGold   AssetClass = "gold"
	ClassForex  AssetClass = "forex"
)

// Asset describes a tradable instrument. Fallback is the documented
// constant substituted when every source for the asset fails.
type Asset struct {
	ID       string
	Name     string
	Symbol   string
	Class    AssetClass
	Fallback float64
}

// catalog is the full set of tradable assets. Crypto ids are CoinGecko
// ids; forex fallbacks are the base exchange rates the synthetic source
// varies around.
var catalog = []Asset{
	{ID: "gold", Name: "COMEX Gold", Symbol: "GOLD", Class: ClassGold, Fallback: 2650.0},

	{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC", Class: ClassCrypto, Fallback: 96000},
	{ID: "ethereum", Name: "Ethereum", Symbol: "ETH", Class: ClassCrypto, Fallback: 3400},
	{ID: "binancecoin", Name: "Binance Coin", Symbol: "BNB", Class: ClassCrypto, Fallback: 620},
	{ID: "ripple", Name: "Ripple", Symbol: "XRP", Class: ClassCrypto, Fallback: 2.10},
	{ID: "solana", Name: "Solana", Symbol: "SOL", Class: ClassCrypto, Fallback: 180},
	{ID: "dogecoin", Name: "Dogecoin", Symbol: "DOGE", Class: ClassCrypto, Fallback: 0.32},
	{ID: "cardano", Name: "Cardano", Symbol: "ADA", Class: ClassCrypto, Fallback: 0.92},

	{ID: "eurusd", Name: "Euro / US Dollar", Symbol: "EUR/USD", Class: ClassForex, Fallback: 1.09},
	{ID: "gbpusd", Name: "British Pound / US Dollar", Symbol: "GBP/USD", Class: ClassForex, Fallback: 1.27},
	{ID: "usdjpy", Name: "US Dollar / Japanese Yen", Symbol: "USD/JPY", Class: ClassForex, Fallback: 149.5},
	{ID: "usdchf", Name: "US Dollar / Swiss Franc", Symbol: "USD/CHF", Class: ClassForex, Fallback: 0.88},
	{ID: "audusd", Name: "Australian Dollar / US Dollar", Symbol: "AUD/USD", Class: ClassForex, Fallback: 0.64},
	{ID: "usdcad", Name: "US Dollar / Canadian Dollar", Symbol: "USD/CAD", Class: ClassForex, Fallback: 1.39},
	{ID: "nzdusd", Name: "New Zealand Dollar / US Dollar", Symbol: "NZD/USD", Class: ClassForex, Fallback: 0.59},
	{ID: "eurgbp", Name: "Euro / British Pound", Symbol: "EUR/GBP", Class: ClassForex, Fallback: 0.86},
	{ID: "eurjpy", Name: "Euro / Japanese Yen", Symbol: "EUR/JPY", Class: ClassForex, Fallback: 163.0},
	{ID: "gbpjpy", Name: "British Pound / Japanese Yen", Symbol: "GBP/JPY", Class: ClassForex, Fallback: 189.5},
}

// Catalog returns all tradable assets in display order.
func Catalog() []Asset {
	out := make([]Asset, len(catalog))
	copy(out, catalog)
	return out
}

// LookupAsset finds an asset by id.
func LookupAsset(id string) (Asset, bool) {
	for _, a := range catalog {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}
