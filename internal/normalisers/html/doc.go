// Package html turns saved web pages, Wikipedia articles in particular,
// into plain text. Page chrome such as citation markers, edit links and
// navigation is dropped along with the markup.
package html
