// Package expr is the small arithmetic language used for calculated
// columns. It is parsed and evaluated here; nothing is handed to an
// interpreter.
//
// Grammar:
//
//	expr    := term (("+" | "-") term)*
//	term    := unary (("*" | "/" | "%") unary)*
//	unary   := "-" unary | primary
//	primary := NUMBER | STRING | "null" | column | call | "(" expr ")"
//	column  := IDENT | "`" any text "`"
//	call    := IDENT "(" [expr ("," expr)*] ")"
//
// Identifiers that are not followed by "(" name columns and are matched
// case-sensitively. Column names that are not identifiers are written in
// backticks: `Unit Price` * qty.
//
// Only the functions in the allowlist can be called: abs, round, coalesce,
// fillna, min, max, sqrt, len, lower, upper, concat.
//
// Values are null, numbers (remembering whether they are integral results
// of integer arithmetic) or strings. Null propagates through arithmetic,
// division or modulo by zero yields null, and "+" on two strings joins
// them. Any other mix of strings and numbers is a type mismatch.
package expr
