package email

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

// Template data mirrors what the site collects when someone subscribes
// or when the reminder job fires.

// SubscriptionData fills the welcome template.
type SubscriptionData struct {
	Voice        string
	DeliveryType string
	Frequency    string
}

// BookSubscriptionData fills the per-book confirmation template.
type BookSubscriptionData struct {
	Email        string
	BookID       string
	BookTitle    string
	Voice        string
	DeliveryType string
	Frequency    string
	BaseURL      string
}

// ReminderData fills the reminder template.
type ReminderData struct {
	Email           string
	BookID          string
	BookTitle       string
	Voice           string
	DeliveryType    string
	ChapterLabel    string
	ProgressPercent int
	QuoteText       string
	QuoteRef        string
	ButtonURL       string
	CTAText         string
	BaseURL         string
}

const defaultQuoteText = `"For I know the plans I have for you," declares the Lord, "plans to prosper you and not to harm you, plans to give you hope and a future."`
const defaultQuoteRef = "Jeremiah 29:11"

// UnsubscribeToken derives the legacy unsubscribe-link token: a plain
// base64 of email-bookId-unsubscribe, checked by exact equality. Not a
// capability-secure token, kept on purpose for compatibility with
// already-sent emails.
func UnsubscribeToken(email, bookID string) string {
	return base64.StdEncoding.EncodeToString(
		fmt.Appendf(nil, "%s-%s-unsubscribe", email, bookID),
	)
}

// UnsubscribeURL builds the signed unsubscribe link embedded in emails.
func UnsubscribeURL(baseURL, email, bookID string) string {
	return fmt.Sprintf(
		"%s/api/unsubscribe?email=%s&bookId=%s&token=%s",
		strings.TrimRight(baseURL, "/"),
		url.QueryEscape(email),
		url.QueryEscape(bookID),
		UnsubscribeToken(email, bookID),
	)
}

var subscriptionHTML = template.Must(template.New("subscription").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <div style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
        <h1>&#127911; Welcome to ASMR Audio Bible!</h1>
      </div>
      <div style="background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px;">
        <p>Thank you for subscribing. Your preferences:</p>
        <div style="background: white; padding: 15px; margin: 10px 0; border-left: 4px solid #667eea;">Voice: {{.Voice}}</div>
        <div style="background: white; padding: 15px; margin: 10px 0; border-left: 4px solid #667eea;">Chapters: {{.DeliveryType}}</div>
        <div style="background: white; padding: 15px; margin: 10px 0; border-left: 4px solid #667eea;">Frequency: {{.Frequency}}</div>
        <p>Relaxing scripture narrations are on their way.</p>
      </div>
    </div>
  </body>
</html>`))

var bookSubscriptionHTML = template.Must(template.New("bookSubscription").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <div style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
        <h1>&#128214; You're subscribed to {{.BookTitle}}</h1>
      </div>
      <div style="background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px;">
        <p>You'll receive {{.Frequency}} reminders for <strong>{{.BookTitle}}</strong>, narrated with the {{.Voice}} voice ({{.DeliveryType}} chapters).</p>
        <a href="{{.BaseURL}}/bible/{{.BookID}}" style="background: #667eea; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; display: inline-block; margin: 20px 0;">Start Listening</a>
        <p style="text-align: center; margin-top: 30px; color: #666; font-size: 14px;"><a href="{{.UnsubLink}}">Unsubscribe</a></p>
      </div>
    </div>
  </body>
</html>`))

var reminderHTML = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <div style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
        <h1>&#128214; {{.BookTitle}} reading reminder</h1>
      </div>
      <div style="background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px;">
        <p>Pick up where you left off: <strong>{{.ChapterLabel}}</strong></p>
        <div style="background: #e0e0e0; border-radius: 10px; height: 20px; margin: 20px 0;">
          <div style="background: #667eea; border-radius: 10px; height: 20px; width: {{.ProgressPercent}}%;"></div>
        </div>
        <p style="text-align: center; color: #666;">{{.ProgressPercent}}% complete</p>
        <blockquote style="border-left: 4px solid #667eea; padding-left: 15px; font-style: italic; color: #555;">
          {{.QuoteText}}
          <footer style="margin-top: 8px; font-style: normal;">&mdash; {{.QuoteRef}}</footer>
        </blockquote>
        <div style="text-align: center;">
          <a href="{{.ButtonURL}}" style="background: #667eea; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; display: inline-block; margin: 20px 0;">{{.CTAText}}</a>
        </div>
        <p style="text-align: center; margin-top: 30px; color: #666; font-size: 14px;"><a href="{{.UnsubLink}}">Unsubscribe</a></p>
      </div>
    </div>
  </body>
</html>`))

// BuildSubscriptionMessage renders the generic welcome email.
func BuildSubscriptionMessage(to string, data SubscriptionData) (Message, error) {
	var html strings.Builder
	if err := subscriptionHTML.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("failed to render subscription email: %w", err)
	}

	text := fmt.Sprintf(
		"Welcome to ASMR Audio Bible!\n\nVoice: %s\nChapters: %s\nFrequency: %s\n",
		data.Voice, data.DeliveryType, data.Frequency,
	)

	return Message{
		To:      to,
		Subject: "Welcome to ASMR Audio Bible!",
		HTML:    html.String(),
		Text:    text,
	}, nil
}

// BuildBookSubscriptionMessage renders the per-book confirmation email.
func BuildBookSubscriptionMessage(data BookSubscriptionData) (Message, error) {
	payload := struct {
		BookSubscriptionData
		UnsubLink string
	}{data, UnsubscribeURL(data.BaseURL, data.Email, data.BookID)}

	var html strings.Builder
	if err := bookSubscriptionHTML.Execute(&html, payload); err != nil {
		return Message{}, fmt.Errorf("failed to render book subscription email: %w", err)
	}

	text := fmt.Sprintf(
		"You're subscribed to %s.\n\nYou'll receive %s reminders narrated with the %s voice (%s chapters).\n\nListen: %s/bible/%s\nUnsubscribe: %s\n",
		data.BookTitle, data.Frequency, data.Voice, data.DeliveryType,
		strings.TrimRight(data.BaseURL, "/"), data.BookID, payload.UnsubLink,
	)

	return Message{
		To:      data.Email,
		Subject: fmt.Sprintf("You're subscribed to %s - ASMR Audio Bible", data.BookTitle),
		HTML:    html.String(),
		Text:    text,
	}, nil
}

// BuildReminderMessage renders the reminder email, filling empty fields
// with the stock chapter label, quote and call to action.
func BuildReminderMessage(data ReminderData) (Message, error) {
	if data.ChapterLabel == "" {
		data.ChapterLabel = fmt.Sprintf("%s Chapter 1", data.BookTitle)
	}
	if data.QuoteText == "" {
		data.QuoteText = defaultQuoteText
		data.QuoteRef = defaultQuoteRef
	}
	if data.ButtonURL == "" {
		data.ButtonURL = fmt.Sprintf("%s/bible/%s", strings.TrimRight(data.BaseURL, "/"), data.BookID)
	}
	if data.CTAText == "" {
		data.CTAText = fmt.Sprintf("Continue Reading %s", data.BookTitle)
	}

	payload := struct {
		ReminderData
		UnsubLink string
	}{data, UnsubscribeURL(data.BaseURL, data.Email, data.BookID)}

	var html strings.Builder
	if err := reminderHTML.Execute(&html, payload); err != nil {
		return Message{}, fmt.Errorf("failed to render reminder email: %w", err)
	}

	text := fmt.Sprintf(
		"%s reading reminder\n\n%s (%d%% complete)\n\n%s\n- %s\n\n%s: %s\nUnsubscribe: %s\n",
		data.BookTitle, data.ChapterLabel, data.ProgressPercent,
		data.QuoteText, data.QuoteRef,
		data.CTAText, data.ButtonURL, payload.UnsubLink,
	)

	return Message{
		To:      data.Email,
		Subject: fmt.Sprintf("Your %s reading reminder - ASMR Audio Bible", data.BookTitle),
		HTML:    html.String(),
		Text:    text,
	}, nil
}
