package repository

import (
	"time"

	"github.com/goliatone/go-expense-ledger/domain"
	"github.com/goliatone/go-expense-ledger/store"
)

// Attribute names as stored in the document collections.
const (
	attrUID           = "uid"
	attrDisplayName   = "displayName"
	attrEmail         = "email"
	attrPhotoURL      = "photoURL"
	attrCreated       = "created"
	attrUpdated       = "updated"
	attrLastLoggedIn  = "lastLoggedIn"
	attrIsAdmin       = "isAdmin"
	attrAllowedUserID = "allowedUserId"
	attrFieldID       = "fieldId"
	attrName          = "name"
	attrTransactionID = "transactionId"
	attrAuthorID      = "authorId"
	attrAuthor        = "author"
	attrType          = "type"
	attrPrice         = "price"
	attrDescription   = "description"
	attrDate          = "date"
)

// putTime skips zero timestamps so a merge-write never clears a stored one.
func putTime(doc store.Document, key string, t time.Time) {
	if !t.IsZero() {
		doc[key] = t
	}
}

// putString skips empty values for the same reason as putTime.
func putString(doc store.Document, key, v string) {
	if v != "" {
		doc[key] = v
	}
}

// userDocument holds only the attributes set on u. isAdmin is written when
// granted; revoking goes through Users.SetAdmin.
func userDocument(u domain.User) store.Document {
	doc := store.Document{attrUID: u.UID}
	putString(doc, attrDisplayName, u.DisplayName)
	putString(doc, attrEmail, u.Email)
	putString(doc, attrPhotoURL, u.PhotoURL)
	if u.IsAdmin {
		doc[attrIsAdmin] = true
	}
	putTime(doc, attrCreated, u.Created)
	putTime(doc, attrLastLoggedIn, u.LastLoggedIn)
	return doc
}

func userFromDocument(doc store.Document) domain.User {
	return domain.User{
		UID:          doc.String(attrUID),
		DisplayName:  doc.String(attrDisplayName),
		Email:        doc.String(attrEmail),
		PhotoURL:     doc.String(attrPhotoURL),
		Created:      doc.Time(attrCreated),
		LastLoggedIn: doc.Time(attrLastLoggedIn),
		IsAdmin:      doc.Bool(attrIsAdmin),
	}
}

func allowedUserDocument(a domain.AllowedUser) store.Document {
	doc := store.Document{
		attrAllowedUserID: a.AllowedUserID,
		attrEmail:         a.Email,
	}
	putTime(doc, attrCreated, a.Created)
	return doc
}

func allowedUserFromDocument(doc store.Document) domain.AllowedUser {
	return domain.AllowedUser{
		AllowedUserID: doc.String(attrAllowedUserID),
		Email:         doc.String(attrEmail),
		Created:       doc.Time(attrCreated),
	}
}

func fieldFromDocument(doc store.Document) domain.Field {
	return domain.Field{
		FieldID: doc.String(attrFieldID),
		Name:    doc.String(attrName),
		Created: doc.Time(attrCreated),
		Updated: doc.TimePtr(attrUpdated),
	}
}

// transactionInputDocument holds the caller editable attributes written by
// both create and update.
func transactionInputDocument(in domain.TransactionInput) store.Document {
	return store.Document{
		attrPrice:       in.Price,
		attrDescription: in.Description,
		attrDate:        in.Date.UTC(),
		attrFieldID:     in.FieldID,
	}
}

func transactionFromDocument(doc store.Document) domain.Transaction {
	return domain.Transaction{
		TransactionID: doc.String(attrTransactionID),
		AuthorID:      doc.String(attrAuthorID),
		Type:          domain.TransactionType(doc.String(attrType)),
		Price:         doc.Float(attrPrice),
		Description:   doc.String(attrDescription),
		Date:          doc.Time(attrDate),
		FieldID:       doc.String(attrFieldID),
		Created:       doc.Time(attrCreated),
		Updated:       doc.TimePtr(attrUpdated),
	}
}
