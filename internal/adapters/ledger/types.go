package ledger

// transactionDTO is the ledger API's transaction shape. Amounts are
// integer milliunits (1 unit = 1000 milliunits).
type transactionDTO struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"`
	Amount    *int64  `json:"amount"`
	PayeeName string  `json:"payee_name"`
	Memo      *string `json:"memo"`
	Deleted   bool    `json:"deleted"`
}

type transactionsResponse struct {
	Data struct {
		Transactions    []transactionDTO `json:"transactions"`
		ServerKnowledge int64            `json:"server_knowledge"`
	} `json:"data"`
}

type updateTransactionRequest struct {
	Transaction memoPatch `json:"transaction"`
}

type memoPatch struct {
	Memo string `json:"memo"`
}

type transactionResponse struct {
	Data struct {
		Transaction transactionDTO `json:"transaction"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Detail string `json:"detail"`
	} `json:"error"`
}
