package header

// Field is a canonical ledger column.
type Field string

const (
	FieldDate        Field = "date"
	FieldCode        Field = "code"
	FieldName        Field = "name"
	FieldItem        Field = "item"
	FieldSpec        Field = "spec"
	FieldUnit        Field = "unit"
	FieldQty         Field = "qty"
	FieldUnitPrice   Field = "unit_price"
	FieldAmount      Field = "amount"
	FieldCredit      Field = "credit"
	FieldDeposit     Field = "deposit"
	FieldPrevBalance Field = "prev_balance"
	FieldCurrBalance Field = "curr_balance"
	FieldMemo        Field = "memo"
	FieldDocNo       Field = "doc_no"
	FieldLineNo      Field = "line_no"
	FieldProfitLoss  Field = "profit_loss"
	FieldRowKey      Field = "rowkey"
)

// synonym lists the header spellings recognised for one field. Matching is
// substring containment against the lower-cased, space-stripped cell, so
// every entry here must be lower case without spaces.
type synonym struct {
	Field    Field
	Spelling []string
}

// synonyms is the single table used both to find the header row and to
// decide which column feeds which field. Order matters only for ties
// between equally long spellings: the earlier field wins.
var synonyms = []synonym{
	{FieldDate, []string{"출고일자", "거래일자", "매출일자", "전표일자", "문서일자", "판매일자", "일자", "날짜", "tx_date", "date"}},
	{FieldCode, []string{"거래처코드", "고객코드", "거래처id", "코드", "erp_customer_code", "customer_code", "code"}},
	{FieldName, []string{"거래처명", "고객명", "업체명", "상호", "거래처", "customer_name", "customer"}},
	{FieldItem, []string{"품명", "품목명", "품목", "상품명", "item_name", "item"}},
	{FieldSpec, []string{"품목규격", "규격", "spec"}},
	{FieldUnit, []string{"단위", "unit"}},
	{FieldQty, []string{"수량", "qty", "quantity"}},
	{FieldUnitPrice, []string{"단가", "unit_price", "price"}},
	{FieldAmount, []string{"매출금액", "판매금액", "공급가액", "공급가", "매출액", "금액", "차변", "debit", "amount"}},
	{FieldCredit, []string{"부가세", "세액", "대변", "vat", "credit"}},
	{FieldDeposit, []string{"입금액", "입금", "수금액", "수금", "deposit"}},
	{FieldPrevBalance, []string{"전일잔액", "전잔액", "이월잔액", "prev_balance"}},
	{FieldCurrBalance, []string{"금일잔액", "미수잔액", "현잔액", "잔액", "총액", "curr_balance", "balance"}},
	{FieldMemo, []string{"적요", "비고", "내용", "메모", "memo", "remark", "description"}},
	{FieldDocNo, []string{"전표번호", "문서번호", "전표no", "전표", "doc_no"}},
	{FieldLineNo, []string{"행번호", "라인번호", "라인", "순번", "항번", "line_no"}},
	{FieldProfitLoss, []string{"손익", "profit_loss"}},
	{FieldRowKey, []string{"erp_row_key", "고유키", "rowkey", "row_key"}},
}

// Fields returns the canonical fields in table order.
func Fields() []Field {
	out := make([]Field, len(synonyms))
	for i, s := range synonyms {
		out[i] = s.Field
	}

	return out
}
