// Package lottery implements tickets and draws on top of the record store.
//
// Tickets and draws are two record families, each with its own counter and data region
// (handles 0 to 3). Ticket and winning numbers must be exactly six distinct values in
// [1,49]. A ticket joins a draw through Participate, which records its owner and id in
// the draw. DrawResults counts the matching numbers of every joined ticket.
//
// Listing all tickets or all draws of an empty store fails with record.RetCNotFound,
// queries by owner return an empty result instead.
package lottery
