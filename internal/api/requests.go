// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend/bulk"
)

// maxBodyBytes bounds interaction request bodies.
const maxBodyBytes = 16 << 10

// parseQuery builds a recommendation query from the URL. Values are checked
// by the serving layer; only malformed integers are rejected here.
func parseQuery(r *http.Request, targetType string) (recommend.Query, error) {
	v := r.URL.Query()
	q := recommend.Query{
		ActorID:    strings.TrimSpace(v.Get("actorId")),
		ActorType:  recommend.ActorType(v.Get("actorType")),
		TargetType: recommend.TargetType(targetType),
		SortBy:     recommend.SortBy(v.Get("sortBy")),
		SimilarTo:  strings.TrimSpace(v.Get("similarTo")),
		Filters:    parseFilters(v),
	}

	var err error
	if q.Page, err = intParam(v, "page"); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(v, "limit"); err != nil {
		return q, err
	}
	return q, nil
}

// parseBulkRequest builds a bulk request from the URL.
func parseBulkRequest(r *http.Request) (bulk.Request, error) {
	v := r.URL.Query()
	req := bulk.Request{
		ActorID:    strings.TrimSpace(v.Get("actorId")),
		ActorType:  recommend.ActorType(v.Get("actorType")),
		TargetType: recommend.TargetType(v.Get("targetType")),
		Filters:    parseFilters(v),
	}
	limit, err := intParam(v, "limit")
	if err != nil {
		return req, err
	}
	req.Limit = limit
	return req, nil
}

func parseFilters(v url.Values) recommend.Filters {
	return recommend.Filters{
		ExcludeIDs:     parseCommaSeparated(v["excludeIds"]),
		CategoryPrefix: strings.TrimSpace(v.Get("category")),
		Hashtag:        strings.TrimSpace(v.Get("hashtag")),
		OwnerID:        strings.TrimSpace(v.Get("ownerId")),
	}
}

// intParam returns 0 when key is absent so the serving layer applies its
// default.
func intParam(v url.Values, key string) (int, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, recommend.NewValidationError(key, "%s must be an integer", key)
	}
	return n, nil
}

// parseCommaSeparated accepts both repeated parameters and comma-separated
// lists (?excludeIds=a,b&excludeIds=c).
func parseCommaSeparated(values []string) []string {
	var result []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	return result
}

// decodeInteraction reads one interaction event from the request body.
// Unknown fields are rejected so that typos such as "eventtype" surface as
// errors instead of events with empty fields.
func decodeInteraction(w http.ResponseWriter, r *http.Request) (recommend.InteractionEvent, error) {
	var event recommend.InteractionEvent
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&event); err != nil {
		return event, recommend.NewValidationError("", "invalid JSON body: %v", err)
	}
	// Weight and ID are assigned by the recorder, never by the caller.
	event.Weight = 0
	event.ID = ""
	return event, nil
}
