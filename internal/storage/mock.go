package storage

import (
	"time"

	"github.com/hoanghai1803/pulse/internal/models"
)

// MockRecords returns the built-in sample records served in mock mode. Publish
// times are relative to now, one day apart, newest first.
func MockRecords(now time.Time) []models.Record {
	day := 24 * time.Hour
	return []models.Record{
		{
			ID:          "mock-1",
			Title:       "Azure OpenAI Service Now Generally Available",
			Description: "Azure OpenAI Service brings advanced AI capabilities to your applications with GPT-4, GPT-3.5-Turbo, and embeddings models.",
			Link:        "https://azure.microsoft.com/updates/azure-openai-ga",
			PublishedAt: now.Add(-1 * day),
			Source:      "Azure Updates",
			Kind:        models.KindUpdate,
			Categories:  []string{"AI", "Azure", "Cognitive Services"},
		},
		{
			ID:          "mock-2",
			Title:       "New Azure Functions Flex Consumption Plan",
			Description: "The Flex Consumption plan offers improved cold start performance and more flexible scaling options for your serverless functions.",
			Link:        "https://azure.microsoft.com/updates/functions-flex",
			PublishedAt: now.Add(-2 * day),
			Source:      "Azure Updates",
			Kind:        models.KindUpdate,
			Categories:  []string{"Compute", "Azure Functions", "Serverless"},
		},
		{
			ID:          "mock-3",
			Title:       "Building Modern Web Apps with Azure and Vue.js",
			Description: "Learn how to create scalable, responsive web applications using Vue.js 3 and Azure services including App Service, Functions, and Cosmos DB.",
			Link:        "https://azure.microsoft.com/blog/vue-modern-apps",
			PublishedAt: now.Add(-3 * day),
			Source:      "Azure Blog",
			Kind:        models.KindBlogPost,
			Author:      "Azure Team",
			Categories:  []string{"Development", "Azure", "Web Development"},
		},
		{
			ID:          "mock-4",
			Title:       "Azure Container Apps Update: New Features",
			Description: "Azure Container Apps now supports additional networking capabilities, improved observability, and enhanced scaling options.",
			Link:        "https://azure.microsoft.com/updates/container-apps-update",
			PublishedAt: now.Add(-4 * day),
			Source:      "Azure Updates",
			Kind:        models.KindUpdate,
			Categories:  []string{"Compute", "Containers", "Azure"},
		},
		{
			ID:          "mock-5",
			Title:       "Getting Started with Azure SDK for JavaScript",
			Description: "A comprehensive guide to using the Azure SDK for JavaScript in your Node.js applications.",
			Link:        "https://devblogs.microsoft.com/azure-sdk/js-getting-started",
			PublishedAt: now.Add(-5 * day),
			Source:      "Azure SDK Blog",
			Kind:        models.KindBlogPost,
			Author:      "SDK Team",
			Categories:  []string{"Development", "SDK", "JavaScript", "Azure"},
		},
		{
			ID:          "mock-6",
			Title:       "Azure Integration Services: New Connectors Available",
			Description: "New connectors for Azure Logic Apps and Azure Functions enable easier integration with popular SaaS applications.",
			Link:        "https://azure.microsoft.com/updates/integration-connectors",
			PublishedAt: now.Add(-6 * day),
			Source:      "Azure Updates",
			Kind:        models.KindUpdate,
			Categories:  []string{"Integration", "Logic Apps", "Azure"},
		},
		{
			ID:          "mock-7",
			Title:       "Microsoft Build Keynote Highlights",
			Description: "The biggest announcements for developers from the Microsoft Build keynote.",
			Link:        "https://www.youtube.com/watch?v=mock7",
			PublishedAt: now.Add(-7 * day),
			Source:      "Microsoft Build",
			Kind:        models.KindVideo,
			Author:      "Microsoft",
			Categories:  []string{"Build", "Azure", "Developer", "Innovation"},
		},
		{
			ID:          "mock-8",
			Title:       "Microsoft Ignite: AI Infrastructure Deep Dive",
			Description: "How Azure infrastructure scales for AI workloads, from silicon to services.",
			Link:        "https://www.youtube.com/watch?v=mock8",
			PublishedAt: now.Add(-8 * day),
			Source:      "Microsoft Ignite",
			Kind:        models.KindVideo,
			Author:      "Microsoft",
			Categories:  []string{"Ignite", "Azure", "Cloud", "AI"},
		},
	}
}
