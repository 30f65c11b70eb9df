package xero

import "github.com/custodia-labs/ledgersync/internal/core/domain"

// DefaultResources returns the built-in endpoint catalogue, used when the
// configuration lists no resources.
func DefaultResources() []domain.Resource {
	collection := func(name, pk string, paginated bool, expand ...domain.ExpandRule) domain.Resource {
		return domain.Resource{
			Name:       name,
			Endpoint:   name,
			PrimaryKey: pk,
			Paginated:  paginated,
			PageSize:   domain.DefaultPageSize,
			Kind:       domain.KindCollection,
			Expand:     expand,
		}
	}
	report := func(name string, params map[string]string) domain.Resource {
		return domain.Resource{
			Name:     name,
			Endpoint: "Reports/" + name,
			ItemsKey: "Reports",
			Kind:     domain.KindReport,
			Params:   params,
		}
	}

	return []domain.Resource{
		collection("Contacts", "ContactID", true,
			domain.ExpandRule{Field: "Addresses", ParentID: "ContactID"},
			domain.ExpandRule{Field: "Phones", ParentID: "ContactID"},
		),
		collection("Invoices", "InvoiceID", true,
			domain.ExpandRule{Field: "LineItems", ParentID: "InvoiceID", PrimaryKey: "LineItemID"},
			domain.ExpandRule{Field: "Payments", ParentID: "InvoiceID", PrimaryKey: "PaymentID"},
			domain.ExpandRule{Field: "CreditNotes", ParentID: "InvoiceID", PrimaryKey: "CreditNoteID"},
		),
		collection("CreditNotes", "CreditNoteID", true,
			domain.ExpandRule{Field: "LineItems", ParentID: "CreditNoteID", PrimaryKey: "LineItemID"},
		),
		collection("Accounts", "AccountID", false),
		collection("BankTransactions", "BankTransactionID", true,
			domain.ExpandRule{Field: "LineItems", ParentID: "BankTransactionID", PrimaryKey: "LineItemID"},
		),
		collection("BankTransfers", "BankTransferID", false),
		collection("Journals", "JournalID", false,
			domain.ExpandRule{Field: "JournalLines", ParentID: "JournalID", PrimaryKey: "JournalLineID"},
		),
		collection("ManualJournals", "ManualJournalID", true,
			domain.ExpandRule{Field: "JournalLines", ParentID: "ManualJournalID"},
		),
		collection("PurchaseOrders", "PurchaseOrderID", true,
			domain.ExpandRule{Field: "LineItems", ParentID: "PurchaseOrderID", PrimaryKey: "LineItemID"},
		),
		collection("Payments", "PaymentID", true),
		collection("Items", "ItemID", false),
		collection("Organisations", "OrganisationID", false,
			domain.ExpandRule{Field: "Addresses", ParentID: "OrganisationID"},
			domain.ExpandRule{Field: "Phones", ParentID: "OrganisationID"},
		),
		collection("Currencies", "Code", false),
		collection("TaxRates", "TaxType", false),
		report("BalanceSheet", nil),
		report("ProfitAndLoss", nil),
		report("TrialBalance", nil),
		report("BankSummary", nil),
		report("ExecutiveSummary", nil),
	}
}
