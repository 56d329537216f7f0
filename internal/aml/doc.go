// Package aml parses and validates Advanced Mobile Location messages.
//
// An AML message is a single line of `name=value` attributes joined by `;`:
//
//	A"ML=1;lt=+54.76397;lg=-0.18305;rd=50;top=20130717141935;lc=90;pm=W;si=123456789012345;ei=1234567890123456;mcc=234;mnc=30;ml=128
//
// Parsing is a linear pipeline:
// - tokenize the raw string into attributes
// - fold them into an AttributeTable (last duplicate wins)
// - check the declared length (ml) and reject unknown attribute names
// - decode every known attribute into a typed Message field
// - hand the Message to a Validator
//
// Parse failures are reported as *ParseError, policy rejections as *ValidationError.
package aml
