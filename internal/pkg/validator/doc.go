// Package validator checks tagged structs: module dependencies at startup
// and use-case inputs per request. Errors carry snake_case field names so
// they match the JSON request bodies.
package validator
