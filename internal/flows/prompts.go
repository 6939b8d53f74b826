package flows

const riskPrompt = `You are an expert in online reputation management. Assess the risk the following online mention poses to the reputation of the person or organization it concerns, and determine its sentiment.

Title: %s
Content Excerpt: %s
Source Type: %s
Platform: %s

Risk levels:
- RED: high risk, needs immediate attention.
- ORANGE: medium risk, a potential concern worth watching.
- GREEN: low risk, minor or no concern.

Respond with ONLY this JSON:
{
    "riskLevel": "RED" | "ORANGE" | "GREEN",
    "sentiment": "positive" | "negative" | "neutral",
    "analysis": "A detailed analysis of the mention and the reasoning behind the risk level"
}`

const summaryPrompt = `Summarize the following content excerpt in 2-3 neutral sentences.

Content Excerpt:
%s

Respond with ONLY this JSON:
{
    "summary": "The summary"
}`

const derivedPrompt = `You are an expert content creator and public relations specialist working on behalf of %s.
Write a "%s" based on the following news item.

News Item Title: %s
News Item Excerpt: %s

Instructions for each content type:
- Summary: a concise, neutral summary of the news item in 2-3 sentences.
- Tweet: at most 280 characters with 1-2 relevant hashtags. Make it engaging.
- LinkedIn Post: a professional post focused on insights or discussion points, with relevant hashtags.
- Key Takeaways: 3-4 markdown bullet points with the key information or implications.
- Press Release Snippet: a short formal paragraph (2-4 sentences) suitable for a press release.

The generated text must be only the content itself, without preamble.

Respond with ONLY this JSON:
{
    "generatedText": "The generated content"
}`

const pagePrompt = `You are a web content analysis engine. Extract structured information from the raw text content of a webpage.

1. Title: the most prominent and accurate title of the article or page.
2. Summary: a concise, neutral summary of the main content, about 2-4 sentences.
3. Platform: the name of the website or publication (e.g. "Forbes", "Wikipedia"). For social media name the site (e.g. "YouTube", "LinkedIn").

Webpage Text Content:
%s

Respond with ONLY this JSON:
{
    "title": "Page title",
    "summary": "Summary",
    "platform": "Platform name"
}`

const dmcaPrompt = `You are a legal assistant drafting a DMCA takedown notice under 17 U.S.C. 512(c)(3).

Infringing material title: %s
Infringing material URL: %s
Description of the original copyrighted work: %s

Complainant:
Name: %s
Address: %s
Email: %s
Phone: %s

The notice must identify the original work and the infringing material, include the complainant's contact information, a statement of good faith belief that the use is not authorized, a statement that the information is accurate under penalty of perjury, and a signature line with the complainant's name. Use a formal tone and plain text paragraphs.

Respond with ONLY this JSON:
{
    "letter": "The full text of the notice"
}`
