// Package pigateway реализует HTTP-клиент платёжного шлюза кошельковой
// платформы: approve, complete, refund и transfer. Шлюз — внешний источник
// истины по одобрению платежей; клиент только транслирует его ответы.
package pigateway

// PaymentResponse представляет ответ шлюза по операции над платежом.
type PaymentResponse struct {
	Identifier string  `json:"identifier"`
	Amount     float64 `json:"amount"`
	Status     struct {
		DeveloperApproved   bool `json:"developer_approved"`
		TransactionVerified bool `json:"transaction_verified"`
		DeveloperCompleted  bool `json:"developer_completed"`
		Cancelled           bool `json:"cancelled"`
	} `json:"status"`
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address"`
	Payer       struct {
		WalletAddress string `json:"wallet_address"`
	} `json:"payer"`
	Developer struct {
		WalletAddress string `json:"wallet_address"`
	} `json:"developer"`
	Transaction struct {
		Txid string `json:"txid"`
	} `json:"transaction"`
}

// PayerWallet возвращает адрес кошелька плательщика с учётом порядка
// фолбэков: payer.wallet_address, затем from_address.
func (r *PaymentResponse) PayerWallet() string {
	if r.Payer.WalletAddress != "" {
		return r.Payer.WalletAddress
	}
	return r.FromAddress
}

// PayeeWallet возвращает адрес кошелька получателя: developer.wallet_address,
// затем to_address.
func (r *PaymentResponse) PayeeWallet() string {
	if r.Developer.WalletAddress != "" {
		return r.Developer.WalletAddress
	}
	return r.ToAddress
}

// CompleteRequest — тело запроса на завершение платежа.
type CompleteRequest struct {
	Txid string `json:"txid"`
}

// RefundRequest — тело запроса на возврат платежа.
type RefundRequest struct {
	RefundTxid string `json:"refund_txid"`
}

// TransferRequest — тело запроса на перевод средств на кошелёк.
type TransferRequest struct {
	ToAddress string  `json:"to_address"`
	Amount    float64 `json:"amount"`
	Memo      string  `json:"memo,omitempty"`
}

// TransferResponse — ответ шлюза на перевод.
type TransferResponse struct {
	Identifier string  `json:"identifier"`
	Txid       string  `json:"txid"`
	Amount     float64 `json:"amount"`
	Status     string  `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}
