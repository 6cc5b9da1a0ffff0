package core

// RequiredColumns are the market-data fields every bar must carry.
var RequiredColumns = []string{"open", "high", "low", "close", "volume"}
