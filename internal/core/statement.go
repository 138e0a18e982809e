package core

// Statement is parameterized SQL ready for execution. Every {:key}
// placeholder in SQL has an entry in Params and every entry is referenced.
type Statement struct {
	SQL    string
	Params Params
}

// PageStatement is a paged SELECT and the COUNT statement over the same
// FROM and WHERE. Count owns a copy of the query parameters.
type PageStatement struct {
	Query  Statement
	Count  Statement
	Number int
	Size   int
}
