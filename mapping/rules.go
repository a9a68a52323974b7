package mapping

import (
	"context"
	"strings"

	"portal_leads/models"
)

func bayutEmail(ctx context.Context, r *Registry, k Key, l *models.Lead) models.DealFields {
	ref := strings.TrimSpace(l.PropertyReference)

	f := r.header(k, Title(k.Platform, k.Type, firstNonEmpty(ref, noReference)), r.ownerByReference(ctx, ref))
	f.Set(FieldContactName, firstNonEmpty(l.ClientName, unknown))
	f.SetIf(FieldEmail, strings.TrimSpace(l.ClientEmail))
	f.SetIf(FieldPhone, strings.TrimSpace(l.ClientPhone.String()))
	f.Set(FieldComments, l.Message)
	f.SetIf(FieldBayutLink, PropertyLink(l.PropertyID.String()))

	r.channelCodes(&f, k)
	r.propertyType(&f, l.CurrentType)
	f.SetIf(FieldPropertyReference, ref)
	f.SetIf(FieldTimestamp, l.DateTime)
	return f
}

func dubizzleEmail(ctx context.Context, r *Registry, k Key, l *models.Lead) models.DealFields {
	ref := strings.TrimSpace(l.PropertyReference)

	f := r.header(k, Title(k.Platform, k.Type, firstNonEmpty(ref, noReference)), r.ownerByReference(ctx, ref))
	f.Set(FieldContactName, firstNonEmpty(l.ClientName, unknown))
	f.SetIf(FieldEmail, strings.TrimSpace(l.ClientEmail))
	f.SetIf(FieldPhone, strings.TrimSpace(l.ClientPhone.String()))
	f.SetIf(FieldReference, ref)
	f.SetIf(FieldDubizzleLink, PropertyLink(l.PropertyID.String()))
	f.Set(FieldComments, l.Message)

	r.propertyType(&f, l.CurrentType)
	r.channelCodes(&f, k)
	f.SetIf(FieldTimestamp, l.DateTime)
	return f
}

func bayutWhatsApp(ctx context.Context, r *Registry, k Key, l *models.Lead) models.DealFields {
	ref := strings.TrimSpace(l.ListingReference)
	actor := strings.TrimSpace(l.ActorName())

	var cell, message string
	if l.Detail != nil {
		cell = strings.TrimSpace(l.Detail.Cell.String())
		message = l.Detail.Message
	}

	f := r.header(k, Title(k.Platform, k.Type, firstNonEmpty(ref, actor, unknown)), r.ownerByReference(ctx, ref))
	f.Set(FieldContactName, firstNonEmpty(actor, unknown))
	f.SetIf(FieldWhatsAppCell, cell)
	f.SetIf(FieldBayutLink, PropertyLink(l.ListingID.String()))
	f.Set(FieldComments, message)

	r.channelCodes(&f, k)
	f.SetIf(FieldPropertyReference, ref)
	f.SetIf(FieldTimestamp, l.DateTime)
	return f
}

func dubizzleWhatsApp(ctx context.Context, r *Registry, k Key, l *models.Lead) models.DealFields {
	ref := strings.TrimSpace(l.ListingReference)
	actor := strings.TrimSpace(l.ActorName())

	var cell, raw string
	if l.Detail != nil {
		cell = strings.TrimSpace(l.Detail.Cell.String())
		raw = l.Detail.Message
	}
	message, link := SplitMessageLink(raw)

	f := r.header(k, Title(k.Platform, k.Type, firstNonEmpty(ref, actor, unknown)), r.ownerByReference(ctx, ref))
	f.Set(FieldContactName, firstNonEmpty(actor, unknown))
	f.SetIf(FieldWhatsAppCell, cell)
	f.Set(FieldComments, message)
	f.SetIf(FieldReference, ref)
	if link != nil {
		f.Set(FieldDubizzleLink, *link)
	}

	r.channelCodes(&f, k)
	f.SetIf(FieldTimestamp, l.DateTime)
	return f
}

// callLog serves both platforms; only the codes differ.
func callLog(ctx context.Context, r *Registry, k Key, l *models.Lead) models.DealFields {
	ref := strings.TrimSpace(l.ListingReference)
	caller := strings.TrimSpace(l.CallerNumber.String())
	receiver := strings.TrimSpace(l.ReceiverNumber.String())

	f := r.header(k, Title(k.Platform, k.Type, firstNonEmpty(ref, noReference)), r.callOwner(ctx, ref, receiver))
	f.Set(FieldContactName, firstNonEmpty(caller, unknown))
	f.SetIf(FieldPhone, caller)
	f.Set(FieldComments, callComments(l))
	f.SetIf(FieldReference, ref)

	r.channelCodes(&f, k)
	f.SetIf(FieldCallStatus, strings.TrimSpace(l.CallStatus.String()))
	f.SetIf(FieldTimestamp, l.CallStart())
	return f
}
